package plans

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Key identifies a plan. The set is closed; use the constants below.
type Key string

const (
	KeyFree Key = "free"
	KeyPro  Key = "pro"
)

// Cadence is the billing interval a paid plan is bought with.
type Cadence string

const (
	CadenceMonthly Cadence = "monthly"
	CadenceAnnual  Cadence = "annual"
)

// Plan is an entry of the catalog. Prices are absent for the free tier.
type Plan struct {
	Key          Key
	Name         string
	Credits      int
	MonthlyPrice decimal.NullDecimal
	YearlyPrice  decimal.NullDecimal
	Features     []string
}

var order = []Key{KeyFree, KeyPro}

var catalog = map[Key]Plan{
	KeyFree: {
		Key:     KeyFree,
		Name:    "Free",
		Credits: 5,
		Features: []string{
			"5 credits on signup",
			"Standard line detail",
			"Printable PNG download",
			"Personal use license",
		},
	},
	KeyPro: {
		Key:          KeyPro,
		Name:         "Pro",
		Credits:      200,
		MonthlyPrice: price("9.90"),
		YearlyPrice:  price("99.00"),
		Features: []string{
			"200 credits every billing cycle",
			"All line detail levels",
			"High resolution print files",
			"Shareable coloring pages",
			"Full meditation library",
		},
	},
}

func price(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

// Get returns the plan for key. Unknown keys fall back to the free tier so
// the lookup stays total.
func Get(key Key) Plan {
	p, ok := catalog[key]
	if !ok {
		p = catalog[KeyFree]
	}
	p.Features = slices.Clone(p.Features)
	return p
}

// All returns every plan in display order.
func All() []Plan {
	out := make([]Plan, 0, len(order))
	for _, k := range order {
		out = append(out, Get(k))
	}
	return out
}

// Keys returns all plan keys in display order.
func Keys() []Key {
	return slices.Clone(order)
}

// ParseKey maps untrusted input to a plan key.
func ParseKey(s string) (Key, bool) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[k]; !ok {
		return "", false
	}
	return k, true
}

// ParseCadence maps untrusted input to a billing cadence. "yearly" and
// "year" are accepted as aliases of annual.
func ParseCadence(s string) (Cadence, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return CadenceMonthly, true
	case "annual", "yearly", "year":
		return CadenceAnnual, true
	default:
		return "", false
	}
}

func (p Plan) IsFree() bool {
	return !p.MonthlyPrice.Valid && !p.YearlyPrice.Valid
}

// PriceFor returns the price charged per cycle of the given cadence.
func (p Plan) PriceFor(c Cadence) decimal.NullDecimal {
	if c == CadenceAnnual {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// AnnualSavings is twelve monthly payments minus the yearly price. Zero when
// either price is missing.
func (p Plan) AnnualSavings() decimal.Decimal {
	if !p.MonthlyPrice.Valid || !p.YearlyPrice.Valid {
		return decimal.Zero
	}
	return p.MonthlyPrice.Decimal.Mul(decimal.NewFromInt(12)).Sub(p.YearlyPrice.Decimal)
}

func (p Plan) HasAnnualDiscount() bool {
	return p.AnnualSavings().IsPositive()
}

// MonthlyEquivalent is the yearly price spread over twelve months, rounded
// to cents.
func (p Plan) MonthlyEquivalent() decimal.NullDecimal {
	if !p.YearlyPrice.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p.YearlyPrice.Decimal.Div(decimal.NewFromInt(12)).Round(2))
}
