package themes

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Theme describes a motif family a coloring page can be generated for.
type Theme struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Description string   `yaml:"description" json:"description"`
	Moods       []string `yaml:"moods" json:"moods"`
	Motifs      []string `yaml:"motifs" json:"motifs"`
	Palette     []string `yaml:"palette" json:"palette"`
}

// ThemeCategory groups themes on the home page.
type ThemeCategory struct {
	ID          string  `yaml:"id" json:"id"`
	Label       string  `yaml:"label" json:"label"`
	Description string  `yaml:"description" json:"description"`
	Themes      []Theme `yaml:"themes" json:"themes"`
}

// Meditation is a guided exercise paired with one or more themes.
type Meditation struct {
	ID              string   `yaml:"id" json:"id"`
	Title           string   `yaml:"title" json:"title"`
	Description     string   `yaml:"description" json:"description"`
	DurationMinutes int      `yaml:"duration_minutes" json:"duration_minutes"`
	ThemeIDs        []string `yaml:"theme_ids" json:"theme_ids"`
}

// Catalog is an immutable set of categories and meditations.
type Catalog struct {
	categories  []ThemeCategory
	meditations []Meditation
	themes      map[string]Theme
}

type document struct {
	Categories  []ThemeCategory `yaml:"categories"`
	Meditations []Meditation    `yaml:"meditations"`
}

//go:embed catalog.yaml
var embedded []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog shipped with the binary. It panics if the
// embedded document is broken, which the package tests guard against.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("themes: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		categories:  doc.Categories,
		meditations: doc.Meditations,
		themes:      make(map[string]Theme),
	}

	categoryIDs := make(map[string]bool)
	for _, cat := range doc.Categories {
		if cat.ID == "" || cat.Label == "" {
			return nil, fmt.Errorf("category without id or label")
		}
		if categoryIDs[cat.ID] {
			return nil, fmt.Errorf("duplicate category %q", cat.ID)
		}
		categoryIDs[cat.ID] = true
		for _, th := range cat.Themes {
			if th.ID == "" || th.Label == "" {
				return nil, fmt.Errorf("theme without id or label in category %q", cat.ID)
			}
			if _, dup := c.themes[th.ID]; dup {
				return nil, fmt.Errorf("duplicate theme %q", th.ID)
			}
			c.themes[th.ID] = th
		}
	}

	meditationIDs := make(map[string]bool)
	for _, m := range doc.Meditations {
		if m.ID == "" || m.Title == "" {
			return nil, fmt.Errorf("meditation without id or title")
		}
		if meditationIDs[m.ID] {
			return nil, fmt.Errorf("duplicate meditation %q", m.ID)
		}
		meditationIDs[m.ID] = true
		if m.DurationMinutes <= 0 {
			return nil, fmt.Errorf("meditation %q: duration must be positive", m.ID)
		}
		for _, id := range m.ThemeIDs {
			if _, ok := c.themes[id]; !ok {
				return nil, fmt.Errorf("meditation %q references unknown theme %q", m.ID, id)
			}
		}
	}

	return c, nil
}

// Categories returns all categories in document order.
func (c *Catalog) Categories() []ThemeCategory {
	out := make([]ThemeCategory, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cloneCategory(cat)
	}
	return out
}

func (c *Catalog) Category(id string) (ThemeCategory, bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cloneCategory(cat), true
		}
	}
	return ThemeCategory{}, false
}

func (c *Catalog) Theme(id string) (Theme, bool) {
	th, ok := c.themes[id]
	if !ok {
		return Theme{}, false
	}
	return cloneTheme(th), true
}

func (c *Catalog) Meditations() []Meditation {
	out := make([]Meditation, len(c.meditations))
	for i, m := range c.meditations {
		out[i] = cloneMeditation(m)
	}
	return out
}

// MeditationsForTheme returns the meditations paired with theme id.
func (c *Catalog) MeditationsForTheme(id string) []Meditation {
	out := []Meditation{}
	for _, m := range c.meditations {
		if slices.Contains(m.ThemeIDs, id) {
			out = append(out, cloneMeditation(m))
		}
	}
	return out
}

// cloneStrings copies s and never returns nil, so empty lists encode as [].
func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneTheme(t Theme) Theme {
	t.Moods = cloneStrings(t.Moods)
	t.Motifs = cloneStrings(t.Motifs)
	t.Palette = cloneStrings(t.Palette)
	return t
}

func cloneCategory(c ThemeCategory) ThemeCategory {
	themes := make([]Theme, len(c.Themes))
	for i, t := range c.Themes {
		themes[i] = cloneTheme(t)
	}
	c.Themes = themes
	return c
}

func cloneMeditation(m Meditation) Meditation {
	m.ThemeIDs = cloneStrings(m.ThemeIDs)
	return m
}
