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

// ScrapeService retrieves the raw listing set produced by an external
// scrape run. The run can take a long time, so the client timeout is
// the configured hard cap rather than a short request timeout.
type ScrapeService struct {
	httpClient *http.Client
	webhookURL string
}

func NewScrapeService(webhookURL string, timeout time.Duration) *ScrapeService {
	return &ScrapeService{
		httpClient: &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

// Fetch blocks until the run's results are available or the cap is
// hit. The webhook answers with an array; only its first element
// carries data.
func (s *ScrapeService) Fetch(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode scrape request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scrape webhook returned status %d: %s", resp.StatusCode, raw)
	}

	var results []models.ScrapeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode scrape response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("scrape webhook returned an empty response")
	}
	return &results[0], nil
}
