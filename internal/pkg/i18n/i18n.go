package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const DefaultLocale = "en"

// CookieName is the cookie that remembers an explicit language choice.
const CookieName = "lang"

//go:embed locales/*.yaml
var localeFS embed.FS

// Bundle holds the message tables of all supported locales.
type Bundle struct {
	tables  map[string]map[string]string
	locales []string
	matcher language.Matcher
}

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
)

// Default returns the bundle built from the embedded locale files.
func Default() *Bundle {
	defaultOnce.Do(func() {
		b, err := Load(localeFS, "locales")
		if err != nil {
			panic(fmt.Sprintf("i18n: embedded locales: %v", err))
		}
		defaultBundle = b
	})
	return defaultBundle
}

// Load reads every <locale>.yaml file in dir. The default locale must be
// present.
func Load(fsys fs.FS, dir string) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	b := &Bundle{tables: make(map[string]map[string]string)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		locale := strings.TrimSuffix(e.Name(), ".yaml")
		if _, err := language.Parse(locale); err != nil {
			return nil, fmt.Errorf("locale file %s: %w", e.Name(), err)
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("locale file %s: %w", e.Name(), err)
		}
		b.tables[locale] = table
	}

	if _, ok := b.tables[DefaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q missing", DefaultLocale)
	}

	// default first so the matcher falls back to it
	b.locales = append(b.locales, DefaultLocale)
	for locale := range b.tables {
		if locale != DefaultLocale {
			b.locales = append(b.locales, locale)
		}
	}
	tags := make([]language.Tag, len(b.locales))
	for i, l := range b.locales {
		tags[i] = language.MustParse(l)
	}
	b.matcher = language.NewMatcher(tags)

	return b, nil
}

// Supported reports whether locale has a message table.
func (b *Bundle) Supported(locale string) bool {
	_, ok := b.tables[locale]
	return ok
}

// Locales lists the available locales, default first.
func (b *Bundle) Locales() []string {
	out := make([]string, len(b.locales))
	copy(out, b.locales)
	return out
}

// Negotiate picks the locale for a request: explicit query value, then the
// cookie, then the Accept-Language header, then the default.
func (b *Bundle) Negotiate(query, cookie, acceptLanguage string) string {
	for _, candidate := range []string{query, cookie} {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if b.Supported(candidate) {
			return candidate
		}
	}

	if acceptLanguage == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	return b.locales[idx]
}

// Messages returns the message set for locale, or the default locale.
func (b *Bundle) Messages(locale string) *Messages {
	if !b.Supported(locale) {
		locale = DefaultLocale
	}
	return &Messages{
		locale:   locale,
		table:    b.tables[locale],
		fallback: b.tables[DefaultLocale],
	}
}

// Messages translates keys for a single locale.
type Messages struct {
	locale   string
	table    map[string]string
	fallback map[string]string
}

func (m *Messages) Locale() string {
	return m.locale
}

// T returns the message for key, falling back to the default locale and
// finally to the key itself.
func (m *Messages) T(key string) string {
	if m == nil {
		return key
	}
	if s, ok := m.table[key]; ok {
		return s
	}
	if s, ok := m.fallback[key]; ok {
		return s
	}
	return key
}

// Tf formats the message for key with args.
func (m *Messages) Tf(key string, args ...any) string {
	return fmt.Sprintf(m.T(key), args...)
}

// FormatPrice renders an amount in euro using the locale's conventions.
func (m *Messages) FormatPrice(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if m != nil && m.locale == "de" {
		return strings.Replace(s, ".", ",", 1) + " €"
	}
	return "€" + s
}

// FormatDate renders a calendar date.
func (m *Messages) FormatDate(t time.Time) string {
	if m != nil && m.locale == "de" {
		return t.Format("02.01.2006")
	}
	return t.Format("Jan 2, 2006")
}
