package product

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpos/internal/core/types"
)

func TestEffectivePrice(t *testing.T) {
	engine, err := NewPricingEngine()
	require.NoError(t, err)

	p := NewProduct("BRD-1", "Baguette", types.MustMoney("4.00"))
	p.Category = "bakery"
	p.PricingRules = PriceRules{
		{Name: "evening", Condition: `hour >= 18 && category == "bakery"`, PercentOff: types.MustMoney("50")},
		{Name: "sunday", Condition: `weekday == 0`, PercentOff: types.MustMoney("10")},
	}
	require.NoError(t, engine.Check(p))

	ctx := context.Background()
	wednesdayNoon := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)
	wednesdayEvening := time.Date(2026, time.March, 11, 19, 0, 0, 0, time.UTC)
	sundayNoon := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	sundayEvening := time.Date(2026, time.March, 15, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "4.00", engine.EffectivePrice(ctx, p, wednesdayNoon).StringFixed(2))
	assert.Equal(t, "2.00", engine.EffectivePrice(ctx, p, wednesdayEvening).StringFixed(2))
	assert.Equal(t, "3.60", engine.EffectivePrice(ctx, p, sundayNoon).StringFixed(2))
	assert.Equal(t, "2.00", engine.EffectivePrice(ctx, p, sundayEvening).StringFixed(2), "first matching rule wins")
}

func TestEffectivePrice_SkipsBrokenRule(t *testing.T) {
	engine, err := NewPricingEngine()
	require.NoError(t, err)

	p := NewProduct("X-1", "Thing", types.MustMoney("10.00"))
	p.PricingRules = PriceRules{
		{Name: "broken", Condition: `unknown_var > 1`, PercentOff: types.MustMoney("90")},
		{Name: "always", Condition: `true`, PercentOff: types.MustMoney("25")},
	}

	assert.Error(t, engine.Check(p))
	assert.Equal(t, "7.50", engine.EffectivePrice(context.Background(), p, time.Now()).StringFixed(2))
}

func TestPriceRule_Validate(t *testing.T) {
	assert.NotNil(t, PriceRule{Condition: " ", PercentOff: types.MustMoney("5")}.validate())
	assert.NotNil(t, PriceRule{Condition: "true", PercentOff: types.MustMoney("0")}.validate())
	assert.NotNil(t, PriceRule{Condition: "true", PercentOff: types.MustMoney("101")}.validate())
	assert.Nil(t, PriceRule{Condition: "true", PercentOff: types.MustMoney("100")}.validate())
}
