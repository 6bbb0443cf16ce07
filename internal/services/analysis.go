package services

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"homefinder-backend/internal/models"
)

// AnalysisService computes aggregate statistics, value rankings and
// distributions over normalized listings. Every method is a pure
// function of its input: safe to re-run, no shared state, and no
// mutation of the listings passed in.
type AnalysisService struct{}

func NewAnalysisService() *AnalysisService {
	return &AnalysisService{}
}

// AnalyzeOptions tunes a full analysis pass.
type AnalyzeOptions struct {
	MinSqft      float64
	NumBuckets   int
	TopLimit     int
	UserMaxPrice *float64
}

// Analyze runs the complete pipeline over one listing set.
func (s *AnalysisService) Analyze(listings []models.Listing, opts AnalyzeOptions) models.AnalysisResult {
	if opts.MinSqft <= 0 {
		opts.MinSqft = 200
	}
	if opts.NumBuckets <= 0 {
		opts.NumBuckets = 5
	}
	if opts.TopLimit <= 0 {
		opts.TopLimit = 5
	}

	beds, baths := s.BedBathDistribution(listings)

	return models.AnalysisResult{
		Kpis:         s.ComputeKPIs(listings, opts.NumBuckets, opts.UserMaxPrice),
		BestValue:    s.RankBestValue(listings, opts.MinSqft),
		TopCheapest:  s.TopCheapest(listings, opts.TopLimit),
		TopExpensive: s.TopExpensive(listings, opts.TopLimit),
		Cities:       s.SummarizeByCity(listings),
		BedCounts:    beds,
		BathCounts:   baths,
	}
}

// ComputeKPIs aggregates prices, areas and bedroom counts. Subsets are
// filtered to non-nil first; an empty subset leaves the corresponding
// field nil. PercentInBudget is set only when a budget is supplied and
// at least one priced listing exists.
func (s *AnalysisService) ComputeKPIs(listings []models.Listing, numBuckets int, userMaxPrice *float64) models.KpiSummary {
	var prices, sqfts []float64
	for _, l := range listings {
		if l.Price != nil {
			prices = append(prices, *l.Price)
		}
		if l.Sqft != nil {
			sqfts = append(sqfts, *l.Sqft)
		}
	}

	k := models.KpiSummary{Count: len(listings)}

	if len(prices) > 0 {
		k.AvgPrice = ptr(round2(mean(prices)))
		k.MedianPrice = ptr(median(prices))
		mn, mx := minMax(prices)
		k.MinPrice = &mn
		k.MaxPrice = &mx
	}
	if len(sqfts) > 0 {
		k.AvgSqft = ptr(round2(mean(sqfts)))
	}

	k.PriceBuckets = s.ComputePriceBuckets(prices, numBuckets)

	var perBedroom []float64
	for _, l := range listings {
		if l.Price != nil && l.Beds != nil && *l.Beds > 0 {
			perBedroom = append(perBedroom, *l.Price / *l.Beds)
		}
	}
	if len(perBedroom) > 0 {
		k.AvgPricePerBedroom = ptr(round2(mean(perBedroom)))
	}

	k.MostCommonBeds = mostCommonBeds(listings)

	if userMaxPrice != nil && len(prices) > 0 {
		within := 0
		for _, p := range prices {
			if p <= *userMaxPrice {
				within++
			}
		}
		k.PercentInBudget = ptr(round2(float64(within) / float64(len(prices)) * 100))
	}

	return k
}

// ComputePriceBuckets builds numBuckets uniform-width buckets spanning
// [min, max]. A price exactly at max lands in the last bucket. A set
// with a single distinct price collapses to one bucket; an empty set
// yields no buckets.
func (s *AnalysisService) ComputePriceBuckets(prices []float64, numBuckets int) []models.PriceBucket {
	if len(prices) == 0 {
		return nil
	}
	if numBuckets <= 0 {
		numBuckets = 5
	}

	mn, mx := minMax(prices)
	if mn == mx {
		return []models.PriceBucket{{Low: mn, High: mx, Count: len(prices)}}
	}

	step := (mx - mn) / float64(numBuckets)
	buckets := make([]models.PriceBucket, numBuckets)
	for i := range buckets {
		buckets[i].Low = mn + float64(i)*step
		buckets[i].High = mn + float64(i+1)*step
	}

	for _, p := range prices {
		idx := int((p - mn) / step)
		if idx >= numBuckets {
			idx = numBuckets - 1
		}
		buckets[idx].Count++
	}

	return buckets
}

// RankBestValue orders listings by price per square foot, cheapest
// first. Listings without a positive price and area, or below the
// minimum area, are excluded. The returned elements are copies; the
// input set is left untouched.
func (s *AnalysisService) RankBestValue(listings []models.Listing, minSqft float64) []models.Listing {
	var deals []models.Listing
	for _, l := range listings {
		if l.Price == nil || *l.Price <= 0 || l.Sqft == nil || *l.Sqft <= 0 {
			continue
		}
		if *l.Sqft < minSqft {
			continue
		}
		pps := round2(*l.Price / *l.Sqft)
		l.PricePerSqft = &pps
		deals = append(deals, l)
	}

	sort.SliceStable(deals, func(i, j int) bool {
		return *deals[i].PricePerSqft < *deals[j].PricePerSqft
	})
	return deals
}

// TopCheapest returns up to limit listings sorted by ascending price.
// Unpriced listings sort last.
func (s *AnalysisService) TopCheapest(listings []models.Listing, limit int) []models.Listing {
	sorted := append([]models.Listing(nil), listings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priceOr(sorted[i], math.Inf(1)) < priceOr(sorted[j], math.Inf(1))
	})
	return truncateListings(sorted, limit)
}

// TopExpensive returns up to limit listings sorted by descending
// price. Unpriced listings sort last.
func (s *AnalysisService) TopExpensive(listings []models.Listing, limit int) []models.Listing {
	sorted := append([]models.Listing(nil), listings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priceOr(sorted[i], 0) > priceOr(sorted[j], 0)
	})
	return truncateListings(sorted, limit)
}

// SummarizeByCity groups listings by city, sorted by count descending.
// Ties keep the order cities were first seen; a blank city falls under
// "Unknown".
func (s *AnalysisService) SummarizeByCity(listings []models.Listing) []models.CitySummary {
	type cityAgg struct {
		count  int
		prices []float64
	}

	var order []string
	aggs := make(map[string]*cityAgg)

	for _, l := range listings {
		city := strings.TrimSpace(l.City)
		if city == "" {
			city = "Unknown"
		}
		agg, seen := aggs[city]
		if !seen {
			agg = &cityAgg{}
			aggs[city] = agg
			order = append(order, city)
		}
		agg.count++
		if l.Price != nil {
			agg.prices = append(agg.prices, *l.Price)
		}
	}

	summaries := make([]models.CitySummary, 0, len(order))
	for _, city := range order {
		agg := aggs[city]
		cs := models.CitySummary{City: city, Count: agg.count}
		if len(agg.prices) > 0 {
			cs.AvgPrice = ptr(round2(mean(agg.prices)))
			cs.MedianPrice = ptr(median(agg.prices))
		}
		summaries = append(summaries, cs)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return summaries
}

// BedBathDistribution counts listings per bedroom and bathroom value,
// skipping nil and zero entries.
func (s *AnalysisService) BedBathDistribution(listings []models.Listing) (map[string]int, map[string]int) {
	beds := make(map[string]int)
	baths := make(map[string]int)

	for _, l := range listings {
		if l.Beds != nil && *l.Beds != 0 {
			beds[formatCount(*l.Beds)]++
		}
		if l.Baths != nil && *l.Baths != 0 {
			baths[formatCount(*l.Baths)]++
		}
	}
	return beds, baths
}

func mostCommonBeds(listings []models.Listing) *float64 {
	counts := make(map[float64]int)
	var order []float64

	for _, l := range listings {
		if l.Beds == nil || *l.Beds == 0 {
			continue
		}
		if counts[*l.Beds] == 0 {
			order = append(order, *l.Beds)
		}
		counts[*l.Beds]++
	}

	var result *float64
	best := 0
	for _, v := range order {
		if counts[v] > best {
			best = counts[v]
			result = ptr(v)
		}
	}
	return result
}

func priceOr(l models.Listing, fallback float64) float64 {
	if l.Price == nil {
		return fallback
	}
	return *l.Price
}

func truncateListings(listings []models.Listing, limit int) []models.Listing {
	if limit <= 0 {
		limit = 5
	}
	if len(listings) > limit {
		return listings[:limit]
	}
	return listings
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func mean(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func minMax(vals []float64) (float64, float64) {
	mn, mx := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func ptr(f float64) *float64 {
	return &f
}
