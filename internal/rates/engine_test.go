package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteDoorToDoorWest1(t *testing.T) {
	engine := NewEngine(DefaultCard())

	got := engine.Quote(Input{
		Destination:  Selector{Zone: "west-1"},
		ActualKg:     200,
		VolumetricKg: 150,
	})

	assert.Equal(t, 200.0, got.ChargeableKg)
	assert.Equal(t, 100.0, got.TierMinKg)
	assert.Equal(t, 14.0, got.RatePerKg)
	assert.Equal(t, 2800.0, got.Freight)
	assert.Equal(t, 500.0, got.Surcharge)
	assert.Equal(t, 3300.0, got.Total)
	assert.Equal(t, "CNY", got.Currency)
}

func TestQuoteVolumetricDominates(t *testing.T) {
	engine := NewEngine(DefaultCard())

	got := engine.Quote(Input{
		Destination:  Selector{Zone: "east-1"},
		ActualKg:     120,
		VolumetricKg: 600,
	})

	assert.Equal(t, 600.0, got.ChargeableKg)
	assert.Equal(t, 500.0, got.TierMinKg)
}

func TestQuoteTierBoundaryTakesHigherTier(t *testing.T) {
	engine := NewEngine(DefaultCard())

	for _, min := range []float64{100, 500, 1000, 3500} {
		got := engine.Quote(Input{
			Destination: Selector{Zone: "west-1"},
			ActualKg:    min,
		})
		assert.Equalf(t, min, got.TierMinKg, "weight %v must land in its own tier", min)
	}
}

func TestQuoteBelowLowestTier(t *testing.T) {
	engine := NewEngine(DefaultCard())

	got := engine.Quote(Input{
		Destination: Selector{Zone: "west-1"},
		ActualKg:    40,
	})

	assert.Equal(t, 100.0, got.TierMinKg)
	assert.Equal(t, 14.0, got.RatePerKg)
}

func TestQuoteUnknownZoneFallsBack(t *testing.T) {
	engine := NewEngine(DefaultCard())

	unknown := engine.Quote(Input{Destination: Selector{Zone: "mars-9"}, ActualKg: 200})
	fallback := engine.Quote(Input{Destination: Selector{Zone: "west-1"}, ActualKg: 200})

	assert.Equal(t, fallback, unknown)
}

func TestQuoteWarehousePickupHasNoSurcharge(t *testing.T) {
	engine := NewEngine(DefaultCard())

	got := engine.Quote(Input{
		Destination: Selector{City: "guangzhou"},
		ActualKg:    200,
	})

	assert.Equal(t, 0.0, got.Surcharge)
	assert.Equal(t, got.Freight, got.Total)
}

func TestQuoteTargetConversion(t *testing.T) {
	engine := NewEngine(DefaultCard())

	got := engine.Quote(Input{
		Destination: Selector{Zone: "west-1"},
		ActualKg:    200,
	})

	require.Equal(t, 3300.0, got.Total)
	assert.Equal(t, 462.0, got.TargetTotal)
	assert.Equal(t, "USD", got.TargetCurrency)
}

func TestQuoteIsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultCard())
	in := Input{Destination: Selector{Zone: "south-2"}, ActualKg: 777.5, VolumetricKg: 810.25}

	first := engine.Quote(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Quote(in))
	}
}

func TestVolumetricWeight(t *testing.T) {
	assert.InDelta(t, 37.5, VolumetricWeight(50, 50, 90), 1e-9)
}
