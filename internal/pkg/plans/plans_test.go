package plans

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogKeys(t *testing.T) {
	assert.Equal(t, []Key{KeyFree, KeyPro}, Keys())
	require.Len(t, All(), 2)
	assert.Equal(t, KeyFree, All()[0].Key)
	assert.Equal(t, KeyPro, All()[1].Key)
}

func TestCatalogCreditsNonNegative(t *testing.T) {
	for _, p := range All() {
		assert.GreaterOrEqual(t, p.Credits, 0, p.Key)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Features)
	}
}

func TestFreePlanHasNoPrices(t *testing.T) {
	free := Get(KeyFree)
	assert.False(t, free.MonthlyPrice.Valid)
	assert.False(t, free.YearlyPrice.Valid)
	assert.True(t, free.IsFree())
	assert.Equal(t, 5, free.Credits)
	assert.False(t, free.HasAnnualDiscount())
}

func TestProAnnualDiscount(t *testing.T) {
	pro := Get(KeyPro)
	require.True(t, pro.MonthlyPrice.Valid)
	require.True(t, pro.YearlyPrice.Valid)

	twelveMonths := pro.MonthlyPrice.Decimal.Mul(decimal.NewFromInt(12))
	assert.True(t, twelveMonths.Equal(decimal.RequireFromString("118.8")))
	assert.True(t, pro.YearlyPrice.Decimal.Equal(decimal.NewFromInt(99)))
	assert.True(t, pro.YearlyPrice.Decimal.LessThan(twelveMonths))
	assert.True(t, pro.HasAnnualDiscount())
	assert.Equal(t, "19.8", pro.AnnualSavings().String())
	assert.Equal(t, "8.25", pro.MonthlyEquivalent().Decimal.StringFixed(2))
}

func TestPriceFor(t *testing.T) {
	pro := Get(KeyPro)
	assert.Equal(t, "9.90", pro.PriceFor(CadenceMonthly).Decimal.StringFixed(2))
	assert.Equal(t, "99.00", pro.PriceFor(CadenceAnnual).Decimal.StringFixed(2))
	assert.False(t, Get(KeyFree).PriceFor(CadenceAnnual).Valid)
}

func TestGetReturnsCopies(t *testing.T) {
	p := Get(KeyPro)
	p.Features[0] = "changed"
	p.Name = "changed"
	assert.NotEqual(t, "changed", Get(KeyPro).Features[0])
	assert.Equal(t, "Pro", Get(KeyPro).Name)

	keys := Keys()
	keys[0] = "broken"
	assert.Equal(t, KeyFree, Keys()[0])
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
		ok   bool
	}{
		{in: "free", want: KeyFree, ok: true},
		{in: " PRO ", want: KeyPro, ok: true},
		{in: "premium", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseKey(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCadence(t *testing.T) {
	c, ok := ParseCadence("Yearly")
	assert.True(t, ok)
	assert.Equal(t, CadenceAnnual, c)

	c, ok = ParseCadence("monthly")
	assert.True(t, ok)
	assert.Equal(t, CadenceMonthly, c)

	_, ok = ParseCadence("weekly")
	assert.False(t, ok)
}

func TestGetUnknownFallsBackToFree(t *testing.T) {
	assert.Equal(t, KeyFree, Get(Key("enterprise")).Key)
}
