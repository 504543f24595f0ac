package themes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Categories())
	assert.NotEmpty(t, c.Meditations())

	for _, m := range c.Meditations() {
		for _, id := range m.ThemeIDs {
			_, ok := c.Theme(id)
			assert.True(t, ok, "meditation %s references %s", m.ID, id)
		}
	}
}

func TestLookup(t *testing.T) {
	c := Default()

	cat, ok := c.Category("mandala")
	require.True(t, ok)
	assert.Equal(t, "Mandalas", cat.Label)
	assert.Len(t, cat.Themes, 2)

	th, ok := c.Theme("ocean-tide")
	require.True(t, ok)
	assert.Equal(t, "Ocean Tide", th.Label)
	assert.Contains(t, th.Moods, "calm")

	_, ok = c.Theme("missing")
	assert.False(t, ok)
	_, ok = c.Category("missing")
	assert.False(t, ok)
}

func TestMeditationsForTheme(t *testing.T) {
	c := Default()
	ms := c.MeditationsForTheme("geometric-mandala")
	require.Len(t, ms, 1)
	assert.Equal(t, "centre-and-circle", ms[0].ID)
	assert.Empty(t, c.MeditationsForTheme("missing"))
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := Default()
	cats := c.Categories()
	cats[0].Label = "changed"
	cats[0].Themes[0].Moods[0] = "changed"

	again := c.Categories()
	assert.NotEqual(t, "changed", again[0].Label)
	assert.NotEqual(t, "changed", again[0].Themes[0].Moods[0])
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	c, err := Parse([]byte(`
categories:
  - id: plain
    label: Plain
    themes:
      - {id: bare, label: Bare}
meditations:
  - {id: pause, title: Pause, duration_minutes: 3}
`))
	require.NoError(t, err)

	th, ok := c.Theme("bare")
	require.True(t, ok)
	out, err := json.Marshal(th)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"bare","label":"Bare","description":"","moods":[],"motifs":[],"palette":[]}`, string(out))

	out, err = json.Marshal(c.Categories())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"moods":[]`)

	out, err = json.Marshal(c.Meditations())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"theme_ids":[]`)

	out, err = json.Marshal(c.MeditationsForTheme("bare"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "duplicate theme",
			doc: `
categories:
  - id: a
    label: A
    themes:
      - {id: t, label: T}
      - {id: t, label: T2}
`,
		},
		{
			name: "unknown theme reference",
			doc: `
categories:
  - id: a
    label: A
    themes:
      - {id: t, label: T}
meditations:
  - {id: m, title: M, duration_minutes: 5, theme_ids: [nope]}
`,
		},
		{
			name: "zero duration",
			doc: `
meditations:
  - {id: m, title: M, duration_minutes: 0}
`,
		},
		{
			name: "broken yaml",
			doc:  "categories: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
