package rates

// Tier is one weight band of the rate card. Tiers are kept sorted by MinKg
// descending; the first tier whose MinKg the chargeable weight meets wins.
type Tier struct {
	MinKg     float64
	ZoneRates map[string]float64
	CityRates map[string]float64
}

// Card is a published rate card: per-tier per-destination rates in the source
// currency, flat per-zone last-mile surcharges, and a fixed conversion rate
// into the target currency.
type Card struct {
	Currency       string
	TargetCurrency string
	FXRate         float64
	Tiers          []Tier
	ZoneSurcharge  map[string]float64
	DefaultZone    string
	DefaultCity    string
}

// DefaultCard returns the currently published card. Rates are CNY per kg.
func DefaultCard() Card {
	return Card{
		Currency:       "CNY",
		TargetCurrency: "USD",
		FXRate:         0.14,
		Tiers: []Tier{
			{
				MinKg:     3500,
				ZoneRates: map[string]float64{"west-1": 10, "east-1": 9.5, "south-2": 11},
				CityRates: map[string]float64{"guangzhou": 8.5, "yiwu": 9},
			},
			{
				MinKg:     1000,
				ZoneRates: map[string]float64{"west-1": 11.5, "east-1": 11, "south-2": 12.5},
				CityRates: map[string]float64{"guangzhou": 10, "yiwu": 10.5},
			},
			{
				MinKg:     500,
				ZoneRates: map[string]float64{"west-1": 12.5, "east-1": 12, "south-2": 13.5},
				CityRates: map[string]float64{"guangzhou": 11, "yiwu": 11.5},
			},
			{
				MinKg:     100,
				ZoneRates: map[string]float64{"west-1": 14, "east-1": 13.5, "south-2": 15},
				CityRates: map[string]float64{"guangzhou": 12.5, "yiwu": 13},
			},
		},
		ZoneSurcharge: map[string]float64{"west-1": 500, "east-1": 450, "south-2": 650},
		DefaultZone:   "west-1",
		DefaultCity:   "guangzhou",
	}
}
