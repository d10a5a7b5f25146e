package bot

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/rentbot/core/telegram"
	"github.com/m3rciful/rentbot/core/telegram/callbacks"
	"github.com/m3rciful/rentbot/core/telegram/commands"
	"github.com/m3rciful/rentbot/core/telegram/helpers"
	"github.com/m3rciful/rentbot/core/telegram/keyboard"
	"github.com/m3rciful/rentbot/core/telegram/middleware"
	"github.com/m3rciful/rentbot/core/telegram/router"
	"github.com/m3rciful/rentbot/internal/flow"
	"github.com/m3rciful/rentbot/internal/model"
)

// callbackActions lists every inline button action the machine emits.
var callbackActions = []string{
	flow.ActionLang,
	flow.ActionApartment,
	flow.ActionApartmentsOK,
	flow.ActionApartmentsClr,
	flow.ActionMonth,
	flow.ActionAmount,
	flow.ActionEdit,
	flow.ActionApprove,
	flow.ActionDecline,
}

// Telegram binds the controller to telebot handlers.
type Telegram struct {
	ctrl    *Controller
	isAdmin func(int64) bool
	// adminOnly answers non-administrators who call admin commands.
	adminOnly func(tele.Context) error
}

// NewTelegram builds the adapter.
func NewTelegram(ctrl *Controller, isAdmin func(int64) bool, adminOnly func(tele.Context) error) *Telegram {
	return &Telegram{ctrl: ctrl, isAdmin: isAdmin, adminOnly: adminOnly}
}

// Register adds commands and callback handlers to reg.
func (t *Telegram) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     t.handle(func(tele.Context) flow.Event { return flow.Event{Kind: flow.EventStart} }),
		Description: "Start or restart the bot",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     t.handle(func(tele.Context) flow.Event { return flow.Event{Kind: flow.EventHelp} }),
		Description: "How to use the bot",
	})
	reg.RegisterCommand("/users", commands.Command{
		Handler:     t.handle(func(tele.Context) flow.Event { return flow.Event{Kind: flow.EventUsers} }),
		Description: "List registered residents",
		AdminOnly:   true,
	})

	cb := t.handle(callbackEvent)
	for _, action := range callbackActions {
		if err := reg.RegisterCallback(action, cb); err != nil {
			return err
		}
	}
	reg.SetTextFallback(t.handle(textEvent))
	return nil
}

// Routes returns the telebot routes for commands, callbacks and messages.
func (t *Telegram) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		IsAdmin:       t.isAdmin,
		OnAdminReject: t.adminOnly,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		Contact:  t.handle(contactEvent),
		Photo:    t.handle(photoEvent),
		Document: t.handle(func(tele.Context) flow.Event { return flow.Event{Kind: flow.EventDocument} }),
	})...)
	return routes
}

func (t *Telegram) handle(event func(tele.Context) flow.Event) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		ctx := helpers.BuildContext(c)
		upd := Update{
			Profile: model.User{
				ID:        sender.ID,
				FirstName: sender.FirstName,
				LastName:  sender.LastName,
				Username:  sender.Username,
			},
			Event: event(c),
		}
		return t.ctrl.Handle(ctx, upd, teleReplier{c: c}, teleSender{api: c.Bot()})
	}
}

func callbackEvent(c tele.Context) flow.Event {
	action, payload := callbacks.ParseCallbackData(c.Callback())
	return flow.Event{Kind: flow.EventCallback, Action: action, Payload: payload}
}

func textEvent(c tele.Context) flow.Event {
	return flow.Event{Kind: flow.EventText, Text: c.Text()}
}

func contactEvent(c tele.Context) flow.Event {
	ev := flow.Event{Kind: flow.EventContact}
	if msg := c.Message(); msg != nil && msg.Contact != nil {
		ev.Phone = msg.Contact.PhoneNumber
		ev.ContactUserID = msg.Contact.UserID
	}
	return ev
}

func photoEvent(c tele.Context) flow.Event {
	ev := flow.Event{Kind: flow.EventPhoto}
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		ev.FileID = msg.Photo.FileID
	}
	return ev
}

// teleReplier answers within the update being handled.
type teleReplier struct {
	c tele.Context
}

func (r teleReplier) Reply(_ context.Context, text string, mk *flow.Markup) error {
	return r.c.Send(text, sendOptions(mk)...)
}

func (r teleReplier) Edit(ctx context.Context, text string, mk *flow.Markup) error {
	if r.c.Callback() == nil {
		return r.Reply(ctx, text, mk)
	}
	return r.c.Edit(text, sendOptions(mk)...)
}

func (r teleReplier) EditMarkup(_ context.Context, mk *flow.Markup) error {
	msg := r.c.Message()
	if msg == nil {
		return errors.New("bot: no message to edit")
	}
	var api botAPI = r.c.Bot()
	if _, err := api.EditReplyMarkup(msg, renderMarkup(mk)); err != nil {
		return err
	}
	middleware.CountMessage(r.c, mk != nil)
	return nil
}

func (r teleReplier) Answer(_ context.Context, text string, alert bool) error {
	if r.c.Callback() == nil {
		if text == "" {
			return nil
		}
		return r.c.Send(text)
	}
	return callbacks.Respond(r.c, &tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// botAPI is the part of the bot used outside of the update context.
type botAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
}

// teleSender reaches users other than the sender.
type teleSender struct {
	api botAPI
}

func (s teleSender) Notify(_ context.Context, to int64, text string) error {
	_, err := s.api.Send(tele.ChatID(to), text)
	return err
}

func (s teleSender) Forward(_ context.Context, to int64, fileID, caption string, mk *flow.Markup) error {
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	_, err := s.api.Send(tele.ChatID(to), photo, sendOptions(mk)...)
	return err
}

func sendOptions(mk *flow.Markup) []any {
	if rm := renderMarkup(mk); rm != nil {
		return []any{rm}
	}
	return nil
}

// renderMarkup maps a transport-neutral keyboard to telebot markup. nil
// stays nil.
func renderMarkup(mk *flow.Markup) *tele.ReplyMarkup {
	if mk == nil {
		return nil
	}
	switch mk.Kind {
	case flow.MarkupInline:
		rows := make([][]keyboard.InlineBtn, len(mk.Rows))
		for i, row := range mk.Rows {
			rows[i] = make([]keyboard.InlineBtn, len(row))
			for j, b := range row {
				rows[i][j] = keyboard.InlineBtn{Text: b.Text, Unique: b.Action, Data: b.Payload}
			}
		}
		return keyboard.InlineButtonsRows(rows...)
	case flow.MarkupReply:
		rows := make([][]string, len(mk.Rows))
		for i, row := range mk.Rows {
			rows[i] = make([]string, len(row))
			for j, b := range row {
				rows[i][j] = b.Text
			}
		}
		return keyboard.ReplyButtons(rows...)
	case flow.MarkupContact:
		label := ""
		if len(mk.Rows) > 0 && len(mk.Rows[0]) > 0 {
			label = mk.Rows[0][0].Text
		}
		return keyboard.ContactRequest(label)
	case flow.MarkupRemove:
		return keyboard.RemoveKeyboard()
	}
	return nil
}
