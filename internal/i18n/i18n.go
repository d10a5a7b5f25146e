// Package i18n renders user-facing texts from the embedded locale bundles.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/m3rciful/rentbot/core/logger"
)

//go:embed locales/*.json
var localeFS embed.FS

// Vars holds template values for a message.
type Vars map[string]any

// Bundle resolves message keys per language. It is safe for concurrent use.
type Bundle struct {
	def        string
	langs      []string
	localizers map[string]*goi18n.Localizer
	printers   map[string]*message.Printer
}

// New loads every embedded locale file. defaultLang is used whenever a key or
// language is missing.
func New(defaultLang string) (*Bundle, error) {
	defTag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("i18n: parse default language %q: %w", defaultLang, err)
	}
	bundle := goi18n.NewBundle(defTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}
	b := &Bundle{
		def:        defTag.String(),
		localizers: make(map[string]*goi18n.Localizer),
		printers:   make(map[string]*message.Printer),
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		mf, err := bundle.LoadMessageFileFS(localeFS, path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: load %s: %w", e.Name(), err)
		}
		lang := mf.Tag.String()
		b.langs = append(b.langs, lang)
		b.localizers[lang] = goi18n.NewLocalizer(bundle, lang, b.def)
		b.printers[lang] = message.NewPrinter(mf.Tag)
	}
	if _, ok := b.localizers[b.def]; !ok {
		return nil, fmt.Errorf("i18n: no messages for default language %q", b.def)
	}
	sort.Strings(b.langs)
	return b, nil
}

// Languages lists the loaded language codes in stable order.
func (b *Bundle) Languages() []string {
	return append([]string(nil), b.langs...)
}

// Default returns the fallback language code.
func (b *Bundle) Default() string {
	return b.def
}

// Supports reports whether lang has its own locale file.
func (b *Bundle) Supports(lang string) bool {
	_, ok := b.localizers[lang]
	return ok
}

// T renders key for lang. Missing languages and keys fall back to the default
// language and then to the key itself.
func (b *Bundle) T(lang, key string, vars Vars) string {
	loc, ok := b.localizers[lang]
	if !ok {
		loc = b.localizers[b.def]
	}
	cfg := &goi18n.LocalizeConfig{MessageID: key}
	if len(vars) > 0 {
		cfg.TemplateData = map[string]any(vars)
	}
	msg, err := loc.Localize(cfg)
	if msg != "" {
		return msg
	}
	if err != nil {
		logger.Warn(logger.Background(), "i18n", "message.missing",
			slog.String("lang", lang),
			slog.String("key", key),
			logger.Err(err),
		)
	}
	return key
}

// Amount formats n with the digit grouping of lang.
func (b *Bundle) Amount(lang string, n int64) string {
	p, ok := b.printers[lang]
	if !ok {
		p = b.printers[b.def]
	}
	return p.Sprintf("%d", n)
}
