package services

import (
	"regexp"
	"strconv"

	"homefinder-backend/internal/models"
)

var nonDigitRegexp = regexp.MustCompile(`[^0-9]`)

// ListingService maps raw scraper records into canonical listings.
type ListingService struct{}

func NewListingService() *ListingService {
	return &ListingService{}
}

// Normalize converts every raw record into a Listing. A record never
// aborts the batch: unreadable records are skipped and counted, and
// malformed fields inside a readable record become nil. Input order is
// preserved for surviving records.
func (s *ListingService) Normalize(raw []models.RawListing) ([]models.Listing, int) {
	listings := make([]models.Listing, 0, len(raw))
	skipped := 0

	for _, r := range raw {
		l, ok := normalizeOne(r)
		if !ok {
			skipped++
			continue
		}
		listings = append(listings, l)
	}

	return listings, skipped
}

func normalizeOne(r models.RawListing) (l models.Listing, ok bool) {
	if len(r) == 0 {
		return models.Listing{}, false
	}

	// A single corrupt record must not take the batch down.
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()

	hd := r.Child("hdpData", "homeInfo")
	latLong := r.Child("latLong")

	l = models.Listing{
		ID:         firstStr(r.Str("zpid"), hd.Str("zpid")),
		URL:        r.Str("detailUrl"),
		Address:    r.Str("address"),
		City:       firstStr(r.Str("addressCity"), hd.Str("city")),
		State:      firstStr(r.Str("addressState"), hd.Str("state")),
		Zip:        firstStr(r.Str("addressZipcode"), hd.Str("zipcode")),
		Price:      resolvePrice(r, hd),
		Beds:       firstNum(r.Num("beds"), hd.Num("bedrooms")),
		Baths:      firstNum(r.Num("baths"), hd.Num("bathrooms")),
		Sqft:       firstNum(r.Num("area"), hd.Num("livingArea")),
		Lat:        firstNum(latLong.Num("latitude"), hd.Num("latitude")),
		Lng:        firstNum(latLong.Num("longitude"), hd.Num("longitude")),
		ImageURL:   r.Str("imgSrc"),
		Estimate:   firstNum(r.Num("zestimate"), hd.Num("zestimate")),
		Broker:     firstStr(r.Str("brokerName"), hd.Str("brokerName")),
		DaysListed: firstNum(r.Num("daysOnZillow"), hd.Num("daysOnZillow")),
	}
	return l, true
}

// resolvePrice walks the fallback chain: typed numeric field, then a
// display string stripped to digits, then the nested home-info price.
// A listing with no usable price stays nil so it cannot skew averages.
func resolvePrice(r, hd models.RawListing) *float64 {
	if p := r.Num("unformattedPrice"); p != nil {
		return p
	}

	if s := r.Str("price"); s != "" {
		digits := nonDigitRegexp.ReplaceAllString(s, "")
		if digits != "" {
			if v, err := strconv.ParseFloat(digits, 64); err == nil {
				return &v
			}
		}
	}

	return hd.Num("price")
}

func firstStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNum(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
