package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ControllerClient pulls the association table from a network
// controller's REST API. A 401/403 response is reported as ErrAuth so
// the registry disables the adapter; every other failure is transient.
type ControllerClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewControllerClient creates a controller-backed network source
func NewControllerClient(endpoint, apiKey string, timeout time.Duration) *ControllerClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ControllerClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the source identifier
func (c *ControllerClient) Name() string {
	return "controller"
}

// clientEntry is the controller's wire format for one associated device
type clientEntry struct {
	MAC       string  `json:"mac"`
	AP        string  `json:"ap"`
	Hostname  string  `json:"hostname"`
	RSSI      int     `json:"rssi"`
	TxBytesPS float64 `json:"tx_bytes_r"`
	RxBytesPS float64 `json:"rx_bytes_r"`
	LastSeen  int64   `json:"last_seen"` // unix seconds
}

// Fetch pulls the current device-association table
func (c *ControllerClient) Fetch(ctx context.Context) ([]AssociationRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/clients", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("controller request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("controller returned %d: %w", resp.StatusCode, ErrAuth)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("controller returned %d", resp.StatusCode)
	}

	var entries []clientEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode controller response: %w", err)
	}

	records := make([]AssociationRecord, 0, len(entries))
	for _, e := range entries {
		if e.MAC == "" {
			continue
		}
		records = append(records, AssociationRecord{
			DeviceID:         strings.ToLower(e.MAC),
			AssociationPoint: e.AP,
			DisplayHint:      e.Hostname,
			SignalStrength:   e.RSSI,
			SendRate:         e.TxBytesPS,
			ReceiveRate:      e.RxBytesPS,
			LastSeen:         time.Unix(e.LastSeen, 0),
		})
	}
	return records, nil
}
