package viewmodel

import (
	"time"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/statistics"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/themes"
)

type Home struct {
	Categories  []themes.ThemeCategory
	Meditations []themes.Meditation
	Plans       []plans.Plan
	Stats       statistics.StatisticsData
}

type Pricing struct {
	Plans           []plans.Plan
	Current         plans.Key
	CheckoutEnabled bool
}

// ColoringForm backs the generator page.
type ColoringForm struct {
	Categories    []themes.ThemeCategory
	Details       []string
	SelectedTheme string
	Balance       int
	MaxUploadMB   int
}

// ColoringCard is a page in a list of generated pages.
type ColoringCard struct {
	UUID         string
	Title        string
	Status       string
	ThumbnailURL string
	CreatedAt    time.Time
}

// ColoringResult backs the result page of one generated page.
type ColoringResult struct {
	UUID          string
	Title         string
	Status        string
	Detail        string
	Theme         *themes.Theme
	PreviewURL    string
	DownloadURL   string
	ShareURL      string
	Width         int
	Height        int
	DownloadCount int
	IsOwner       bool
	Meditations   []themes.Meditation
}

// CreditEntry is one line of the credit history.
type CreditEntry struct {
	Amount    int
	Reason    string
	CreatedAt time.Time
}

// Subscription backs the account subscription page. Dates are nil when
// they do not apply to the current status.
type Subscription struct {
	PlanName        string
	PlanKey         plans.Key
	HasSubscription bool
	Status          string
	Cadence         string
	StartDate       *time.Time
	RenewalDate     *time.Time
	EndDate         *time.Time
	CanCancel       bool
	CheckoutEnabled bool
	Balance         int
	History         []CreditEntry
	Pages           []ColoringCard
}

type Register struct {
	CaptchaSiteKey string
}
