package i18n

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBundleHasEnglishAndGerman(t *testing.T) {
	b := Default()
	assert.True(t, b.Supported("en"))
	assert.True(t, b.Supported("de"))
	assert.Equal(t, "en", b.Locales()[0])
}

func TestLocaleFilesHaveSameKeys(t *testing.T) {
	b := Default()
	for key := range b.tables[DefaultLocale] {
		for _, locale := range b.Locales() {
			_, ok := b.tables[locale][key]
			assert.True(t, ok, "locale %s misses key %s", locale, key)
		}
	}
}

func TestNegotiate(t *testing.T) {
	b := Default()
	tests := []struct {
		name   string
		query  string
		cookie string
		accept string
		want   string
	}{
		{name: "query wins", query: "de", cookie: "en", accept: "en-US", want: "de"},
		{name: "cookie before header", cookie: "de", accept: "en-US,en;q=0.9", want: "de"},
		{name: "unsupported query ignored", query: "fr", accept: "de-DE,de;q=0.9", want: "de"},
		{name: "accept language region", accept: "de-AT", want: "de"},
		{name: "unknown language", accept: "ja-JP", want: "en"},
		{name: "nothing given", want: "en"},
		{name: "garbage header", accept: ";;;", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Negotiate(tt.query, tt.cookie, tt.accept))
		})
	}
}

func TestTranslationFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"l/en.yaml": {Data: []byte("hello: Hello\nonly_en: English only\n")},
		"l/de.yaml": {Data: []byte("hello: Hallo\n")},
	}
	b, err := Load(fsys, "l")
	require.NoError(t, err)

	de := b.Messages("de")
	assert.Equal(t, "Hallo", de.T("hello"))
	assert.Equal(t, "English only", de.T("only_en"))
	assert.Equal(t, "missing.key", de.T("missing.key"))

	assert.Equal(t, "en", b.Messages("xx").Locale())

	var nilMessages *Messages
	assert.Equal(t, "k", nilMessages.T("k"))
}

func TestLoadRequiresDefaultLocale(t *testing.T) {
	fsys := fstest.MapFS{"l/de.yaml": {Data: []byte("hello: Hallo\n")}}
	_, err := Load(fsys, "l")
	assert.Error(t, err)
}

func TestFormatting(t *testing.T) {
	b := Default()
	price := decimal.RequireFromString("9.9")
	assert.Equal(t, "€9.90", b.Messages("en").FormatPrice(price))
	assert.Equal(t, "9,90 €", b.Messages("de").FormatPrice(price))

	day := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Apr 3, 2026", b.Messages("en").FormatDate(day))
	assert.Equal(t, "03.04.2026", b.Messages("de").FormatDate(day))
}
