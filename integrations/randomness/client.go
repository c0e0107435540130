package randomness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prizepool/native/lottery"
)

// Config carries the oracle tuning forwarded on every request.
type Config struct {
	SubscriptionID   uint64
	KeyHash          string
	Confirmations    uint16
	CallbackGasLimit uint32
	NumWords         uint32
}

// Client opens randomness requests against an external oracle. Fulfillment
// arrives out of band through the gateway's fulfill endpoint.
type Client struct {
	endpoint string
	cfg      Config
	http     *http.Client
}

var _ lottery.Coordinator = (*Client)(nil)

func NewClient(endpoint string, cfg Config) *Client {
	if cfg.NumWords == 0 {
		cfg.NumWords = 1
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		cfg:      cfg,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type requestPayload struct {
	SubscriptionID   uint64 `json:"subscriptionId"`
	KeyHash          string `json:"keyHash"`
	Confirmations    uint16 `json:"confirmations"`
	CallbackGasLimit uint32 `json:"callbackGasLimit"`
	NumWords         uint32 `json:"numWords"`
}

type requestResponse struct {
	RequestID uint64 `json:"requestId"`
}

func (c *Client) RequestRandomWords(ctx context.Context) (uint64, error) {
	payload := requestPayload{
		SubscriptionID:   c.cfg.SubscriptionID,
		KeyHash:          c.cfg.KeyHash,
		Confirmations:    c.cfg.Confirmations,
		CallbackGasLimit: c.cfg.CallbackGasLimit,
		NumWords:         c.cfg.NumWords,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/requests", bytes.NewReader(encoded))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("randomness: request returned status %d", resp.StatusCode)
	}
	var decoded requestResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("randomness: decode response: %w", err)
	}
	return decoded.RequestID, nil
}
