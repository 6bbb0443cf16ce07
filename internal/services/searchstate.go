package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Zillow search URLs carry their entire filter set as a URL-encoded
// JSON blob in the searchQueryState query parameter. These helpers
// decode a candidate URL back into that state and re-encode an edited
// state, so a user-corrected URL can be validated before it is sent on.

// DecodeSearchURL extracts and decodes the searchQueryState parameter.
func DecodeSearchURL(rawURL string) (map[string]any, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search URL: %w", err)
	}

	encoded := parsed.Query().Get("searchQueryState")
	if encoded == "" {
		return nil, fmt.Errorf("search URL has no searchQueryState parameter")
	}

	var state map[string]any
	if err := json.Unmarshal([]byte(encoded), &state); err != nil {
		return nil, fmt.Errorf("decode searchQueryState: %w", err)
	}
	return state, nil
}

// EncodeSearchURL rebuilds a search URL from a base path and a query
// state map.
func EncodeSearchURL(baseURL string, state map[string]any) (string, error) {
	blob, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode searchQueryState: %w", err)
	}
	return baseURL + "?searchQueryState=" + url.QueryEscape(string(blob)), nil
}

// CanonicalizeSearchURL validates a pasted search URL and re-encodes
// its query state onto the bare path, so an edited URL is stored in
// one canonical form. An undecodable state is an error.
func CanonicalizeSearchURL(rawURL string) (string, error) {
	state, err := DecodeSearchURL(rawURL)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid search URL: %w", err)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""

	return EncodeSearchURL(parsed.String(), state)
}

// SearchTermFromURL pulls the user-facing search term out of a search
// URL, or "" when the URL does not decode.
func SearchTermFromURL(rawURL string) string {
	state, err := DecodeSearchURL(rawURL)
	if err != nil {
		return ""
	}
	term, _ := state["usersSearchTerm"].(string)
	return strings.TrimSpace(term)
}

// IsSearchURL reports whether a user message looks like a pasted
// search URL rather than free text.
func IsSearchURL(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	return parsed.Query().Get("searchQueryState") != ""
}
