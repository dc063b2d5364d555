package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds ledger client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig points at the public TronGrid gateway.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.trongrid.io",
		Timeout: 10 * time.Second,
	}
}

// Client wraps the TRON full-node HTTP API. It performs single calls with
// no retries; failures surface to the request that triggered them.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a ledger client from config, filling in defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// AccountInfo is the balance/resource snapshot for one address. Balance
// is converted from sun to TRX; absent fields default to zero.
type AccountInfo struct {
	TrxBalance float64
	Bandwidth  int64
	Energy     int64
}

// TransferEvent is one confirmed TRX transfer involving the address.
type TransferEvent struct {
	TxID      string  `json:"txID"`
	Amount    float64 `json:"amount"`
	ToAddress string  `json:"to"`
}

type accountResponse struct {
	Balance   int64 `json:"balance"`
	Bandwidth int64 `json:"bandwidth"`
	Energy    int64 `json:"energy"`
}

const sunPerTRX = 1_000_000

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call ledger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ledger response: %w", err)
	}
	return nil
}

// GetAccount fetches the current balance, bandwidth and energy for an
// address.
func (c *Client) GetAccount(ctx context.Context, address string) (AccountInfo, error) {
	payload, err := json.Marshal(map[string]any{"address": address, "visible": true})
	if err != nil {
		return AccountInfo{}, fmt.Errorf("marshal account request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wallet/getaccount", bytes.NewReader(payload))
	if err != nil {
		return AccountInfo{}, fmt.Errorf("build account request: %w", err)
	}

	var account accountResponse
	if err := c.do(ctx, req, &account); err != nil {
		return AccountInfo{}, err
	}

	return AccountInfo{
		TrxBalance: float64(account.Balance) / sunPerTRX,
		Bandwidth:  account.Bandwidth,
		Energy:     account.Energy,
	}, nil
}

type transfersResponse struct {
	Data []TransferEvent `json:"data"`
}

// ListTransfers fetches up to limit recent confirmed transfers for an
// address.
func (c *Client) ListTransfers(ctx context.Context, address string, limit int) ([]TransferEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions?only_confirmed=true&limit=%s",
		c.baseURL, url.PathEscape(address), strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build transfers request: %w", err)
	}

	var transfers transfersResponse
	if err := c.do(ctx, req, &transfers); err != nil {
		return nil, err
	}
	return transfers.Data, nil
}
