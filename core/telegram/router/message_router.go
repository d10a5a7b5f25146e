package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/rentbot/core/telegram"
	"github.com/m3rciful/rentbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions binds handlers to non-command message kinds. Nil handlers
// leave the endpoint unbound.
type MessageOptions struct {
	Text     tele.HandlerFunc
	Contact  tele.HandlerFunc
	Photo    tele.HandlerFunc
	Document tele.HandlerFunc
}

// MessageRoutes builds routes for plain messages. Text that looks like a
// registered command but reached OnText (for example "/start@otherbot" or a
// command typed with different case) is dispatched to the command handler.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if name, ok := commandName(c.Text()); ok && reg != nil {
			if key, cmd, ok := reg.LookupCommand(name); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}
		if opts.Text != nil {
			return handleWithSummary(c, "text", start, "", "", func() error {
				return opts.Text(c)
			})
		}
		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}
		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: text}}
	for _, r := range []struct {
		endpoint string
		name     string
		handler  tele.HandlerFunc
	}{
		{tele.OnContact, "contact", opts.Contact},
		{tele.OnPhoto, "photo", opts.Photo},
		{tele.OnDocument, "document", opts.Document},
	} {
		if r.handler == nil {
			continue
		}
		name, h := r.name, r.handler
		routes = append(routes, tg.Route{
			Endpoint: r.endpoint,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, name, time.Now(), "", "", func() error {
					return h(c)
				})
			},
		})
	}

	for i := range routes {
		routes[i].Handler = middleware.RecoverMiddleware(middleware.LoggerMiddleware(routes[i].Handler))
	}
	return routes
}

// commandName extracts "/name" from "/Name@bot args".
func commandName(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	head := strings.Fields(text)[0]
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), len(head) > 1
}
