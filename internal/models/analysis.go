package models

// PriceBucket is one uniform-width histogram bucket over listing prices.
type PriceBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// CitySummary aggregates listings grouped by city.
type CitySummary struct {
	City        string   `json:"city"`
	Count       int      `json:"count"`
	AvgPrice    *float64 `json:"avg_price"`
	MedianPrice *float64 `json:"median_price"`
}

// KpiSummary is the headline aggregate over a normalized listing set.
// Nil fields mean the underlying subset was empty; nothing here is
// ever NaN or the result of a division by zero.
type KpiSummary struct {
	Count              int           `json:"count"`
	AvgPrice           *float64      `json:"avg_price"`
	MedianPrice        *float64      `json:"median_price"`
	MinPrice           *float64      `json:"min_price"`
	MaxPrice           *float64      `json:"max_price"`
	AvgSqft            *float64      `json:"avg_sqft"`
	PriceBuckets       []PriceBucket `json:"price_buckets"`
	AvgPricePerBedroom *float64      `json:"avg_price_per_bedroom"`
	MostCommonBeds     *float64      `json:"most_common_beds"`
	PercentInBudget    *float64      `json:"percent_in_budget,omitempty"`
}

// AnalysisResult is everything the widget renders once a scrape run
// has been normalized and aggregated.
type AnalysisResult struct {
	Kpis         KpiSummary     `json:"kpis"`
	BestValue    []Listing      `json:"best_value"`
	TopCheapest  []Listing      `json:"top_cheapest"`
	TopExpensive []Listing      `json:"top_expensive"`
	Cities       []CitySummary  `json:"cities"`
	BedCounts    map[string]int `json:"bed_counts"`
	BathCounts   map[string]int `json:"bath_counts"`
}
