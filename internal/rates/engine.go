// Package rates implements the tiered rate-card pricing engine. The engine is
// a pure function over a published card: no state, no I/O.
package rates

import (
	"math"

	"golang.org/x/text/currency"
)

// Selector identifies the destination: a door-to-door zone or a
// warehouse-pickup city, never both.
type Selector struct {
	Zone string `json:"zone,omitempty"`
	City string `json:"city,omitempty"`
}

// Input carries the cargo figures for one rate calculation.
type Input struct {
	Destination  Selector `json:"destination"`
	ActualKg     float64  `json:"actual_kg"`
	VolumetricKg float64  `json:"volumetric_kg"`
}

// Breakdown is the priced result.
type Breakdown struct {
	ChargeableKg   float64 `json:"chargeable_kg"`
	TierMinKg      float64 `json:"tier_min_kg"`
	RatePerKg      float64 `json:"rate_per_kg"`
	Freight        float64 `json:"freight"`
	Surcharge      float64 `json:"surcharge"`
	Total          float64 `json:"total"`
	Currency       string  `json:"currency"`
	TargetTotal    float64 `json:"target_total"`
	TargetCurrency string  `json:"target_currency"`
}

// VolumetricWeight computes the dimensional-weight proxy for bulky cargo.
// Dimensions are in centimetres, the result in kilograms.
func VolumetricWeight(lengthCm, widthCm, heightCm float64) float64 {
	return lengthCm * widthCm * heightCm / 6000
}

// Engine prices cargo against a card.
type Engine struct {
	card Card
}

// NewEngine returns an engine over the given card.
func NewEngine(card Card) *Engine {
	return &Engine{card: card}
}

// Card returns the published card the engine prices against.
func (e *Engine) Card() Card {
	return e.card
}

// Quote prices the input. Chargeable weight is max(actual, volumetric); the
// tier with the highest threshold the weight meets applies, with weights
// below every threshold falling into the lowest tier. Unknown destinations
// fall back to the card's default zone or city. Each monetary figure is
// rounded exactly once, at the point it is produced.
func (e *Engine) Quote(in Input) Breakdown {
	chargeable := math.Max(in.ActualKg, in.VolumetricKg)

	tier := e.card.Tiers[len(e.card.Tiers)-1]
	for _, t := range e.card.Tiers {
		if chargeable >= t.MinKg {
			tier = t
			break
		}
	}

	var rate, surcharge float64
	if in.Destination.City != "" {
		city := in.Destination.City
		if _, ok := tier.CityRates[city]; !ok {
			city = e.card.DefaultCity
		}
		rate = tier.CityRates[city]
	} else {
		zone := in.Destination.Zone
		if _, ok := tier.ZoneRates[zone]; !ok {
			zone = e.card.DefaultZone
		}
		rate = tier.ZoneRates[zone]
		surcharge = e.card.ZoneSurcharge[zone]
	}

	freight := roundMinor(chargeable*rate, e.card.Currency)
	total := freight + surcharge

	return Breakdown{
		ChargeableKg:   chargeable,
		TierMinKg:      tier.MinKg,
		RatePerKg:      rate,
		Freight:        freight,
		Surcharge:      surcharge,
		Total:          total,
		Currency:       e.card.Currency,
		TargetTotal:    roundMinor(total*e.card.FXRate, e.card.TargetCurrency),
		TargetCurrency: e.card.TargetCurrency,
	}
}

// roundMinor rounds to the currency's minor unit (2 digits for CNY/USD,
// 0 for JPY and friends).
func roundMinor(v float64, code string) float64 {
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	factor := math.Pow(10, float64(scale))
	return math.Round(v*factor) / factor
}
