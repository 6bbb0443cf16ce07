package models

import "strconv"

// RawListing is an arbitrary nested record from the external scraper.
// No schema is guaranteed; all access goes through total accessors
// that return zero values instead of failing on missing or
// differently-typed fields.
type RawListing map[string]any

// Child returns the nested object at the given key path, or an empty
// RawListing when any step is missing or not an object.
func (r RawListing) Child(keys ...string) RawListing {
	cur := r
	for _, key := range keys {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return RawListing{}
		}
		cur = next
	}
	return cur
}

// Str returns the field as a string. Numeric values are formatted,
// anything else resolves to "".
func (r RawListing) Str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Num returns the field as a number, or nil when it is missing or not
// numeric. JSON decoding yields float64, but int is handled for
// records built in code.
func (r RawListing) Num(key string) *float64 {
	switch v := r[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

// Listing is the canonical flat shape every raw record is mapped to.
// Numeric fields are pointers: nil means the source had no usable
// value, which keeps absent data out of the aggregates.
type Listing struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Zip        string   `json:"zip"`
	Price      *float64 `json:"price"`
	Beds       *float64 `json:"beds"`
	Baths      *float64 `json:"baths"`
	Sqft       *float64 `json:"sqft"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	ImageURL   string   `json:"image_url"`
	Estimate   *float64 `json:"estimate"`
	Broker     string   `json:"broker"`
	DaysListed *float64 `json:"days_listed"`

	// PricePerSqft is attached only by the value-ranking step, and
	// only to copies it makes, so the normalized set itself is never
	// mutated by analysis.
	PricePerSqft *float64 `json:"price_per_sqft,omitempty"`
}
