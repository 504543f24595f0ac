package apiv1

import "time"

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// Error defines model for Error.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Plan defines model for Plan. Prices are decimal strings, absent for the
// free plan.
type Plan struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Credits      int      `json:"credits"`
	MonthlyPrice *string  `json:"monthly_price"`
	YearlyPrice  *string  `json:"yearly_price"`
	Features     []string `json:"features"`
}

// Subscription defines model for Subscription.
type Subscription struct {
	ID           string     `json:"id"`
	Plan         string     `json:"plan"`
	Status       string     `json:"status"`
	BillingCycle string     `json:"billing_cycle"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	RenewalDate  *time.Time `json:"renewal_date"`
	CancelledAt  *time.Time `json:"cancelled_at"`
}

// MySubscription defines model for MySubscription.
type MySubscription struct {
	Plan         string        `json:"plan"`
	Credits      int           `json:"credits"`
	Subscription *Subscription `json:"subscription"`
}

// ColoringStatus defines model for ColoringStatus.
type ColoringStatus struct {
	UUID     string `json:"uuid"`
	Status   string `json:"status"`
	Complete bool   `json:"complete"`
}
