package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"homefinder-backend/internal/models"
)

// ResolverService talks to the external query-resolution webhook that
// turns free-text search intent into a search URL or a scrape run.
type ResolverService struct {
	httpClient *http.Client
	webhookURL string
}

func NewResolverService(webhookURL string, timeout time.Duration) *ResolverService {
	return &ResolverService{
		httpClient: &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

// Resolve posts the user's message and returns the resolver's verdict.
// Transport failures and non-2xx statuses come back as errors; the
// caller turns them into chat messages.
func (s *ResolverService) Resolve(ctx context.Context, req models.ResolveRequest) (*models.ResolveResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode resolver request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build resolver request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("resolver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("resolver returned status %d: %s", resp.StatusCode, raw)
	}

	var result models.ResolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode resolver response: %w", err)
	}
	return &result, nil
}
