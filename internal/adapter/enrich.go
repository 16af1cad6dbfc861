package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPEnricher fetches supplementary imagery for a detection event from
// the enrichment collaborator's REST endpoint.
type HTTPEnricher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPEnricher creates an HTTP-backed enricher
func NewHTTPEnricher(endpoint, apiKey string, timeout time.Duration) *HTTPEnricher {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPEnricher{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the snapshot image for an event id
func (e *HTTPEnricher) Fetch(ctx context.Context, eventID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/events/%s/snapshot", e.endpoint, eventID), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned %d", resp.StatusCode)
	}

	// Snapshots are single-frame images; 8 MiB covers any sane camera.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
