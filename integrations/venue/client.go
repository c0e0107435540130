package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prizepool/crypto"
	"prizepool/native/lottery"
)

// Client talks to an external staking venue over HTTP. Amounts travel as
// decimal strings, addresses in their bech32 form.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ lottery.YieldVenue = (*Client)(nil)

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type amountPayload struct {
	Amount string `json:"amount"`
}

type withdrawPayload struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type stakeInfoPayload struct {
	Deposited string `json:"deposited"`
	Unclaimed string `json:"unclaimed"`
}

type minDepositPayload struct {
	MinDeposit string `json:"minDeposit"`
}

func (c *Client) DepositSelf(ctx context.Context, amount *big.Int) error {
	return c.post(ctx, "/v1/stake/deposit", amountPayload{Amount: amount.String()}, nil)
}

func (c *Client) Withdraw(ctx context.Context, amount *big.Int, recipient [20]byte) error {
	payload := withdrawPayload{
		Amount:    amount.String(),
		Recipient: crypto.NewAddress(crypto.PoolPrefix, recipient[:]).String(),
	}
	return c.post(ctx, "/v1/stake/withdraw", payload, nil)
}

func (c *Client) ClaimSelf(ctx context.Context) error {
	return c.post(ctx, "/v1/stake/claim", struct{}{}, nil)
}

func (c *Client) StakeInfo(ctx context.Context) (lottery.VenueStakeInfo, error) {
	var payload stakeInfoPayload
	if err := c.get(ctx, "/v1/stake/info", &payload); err != nil {
		return lottery.VenueStakeInfo{}, err
	}
	deposited, err := parseBig(payload.Deposited)
	if err != nil {
		return lottery.VenueStakeInfo{}, fmt.Errorf("venue: deposited: %w", err)
	}
	unclaimed, err := parseBig(payload.Unclaimed)
	if err != nil {
		return lottery.VenueStakeInfo{}, fmt.Errorf("venue: unclaimed: %w", err)
	}
	return lottery.VenueStakeInfo{Deposited: deposited, Unclaimed: unclaimed}, nil
}

func (c *Client) MinDeposit(ctx context.Context) (*big.Int, error) {
	var payload minDepositPayload
	if err := c.get(ctx, "/v1/stake/min-deposit", &payload); err != nil {
		return nil, err
	}
	min, err := parseBig(payload.MinDeposit)
	if err != nil {
		return nil, fmt.Errorf("venue: min deposit: %w", err)
	}
	return min, nil
}

func (c *Client) post(ctx context.Context, path string, body, into any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, into)
}

func (c *Client) get(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, into)
}

func (c *Client) do(req *http.Request, into any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("venue: %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if into == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

func parseBig(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal integer", raw)
	}
	return value, nil
}
