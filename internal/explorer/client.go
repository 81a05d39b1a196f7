package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
)

// ErrABINotFound signals the explorer has no verified ABI for the address.
var ErrABINotFound = errors.New("contract abi not available")

// Endpoint describes one explorer API target.
type Endpoint struct {
	APIURL  string
	APIKey  string
	ChainID uint64
}

// Client fetches verified contract ABIs from Etherscan-style explorer APIs.
// Requests are rate limited and retried with exponential backoff; both
// concerns live here, not in the discovery core.
type Client struct {
	endpoints   map[string]Endpoint
	httpc       *http.Client
	limiter     *time.Ticker
	maxAttempts int
	log         *slog.Logger
}

// NewClient builds an explorer client over the given per-network endpoints.
func NewClient(endpoints map[string]Endpoint, timeout time.Duration, requestsPerSecond, maxAttempts int, log *slog.Logger) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 4
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Client{
		endpoints:   endpoints,
		httpc:       &http.Client{Timeout: timeout},
		limiter:     time.NewTicker(time.Second / time.Duration(requestsPerSecond)),
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Close releases the rate limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// FetchABI retrieves the verified ABI for address on the given network.
// Transport failures and rate-limit responses are retried; a missing or
// unverified contract returns ErrABINotFound immediately.
func (c *Client) FetchABI(ctx context.Context, network string, address common.Address) (abidoc.Document, error) {
	ep, ok := c.endpoints[network]
	if !ok {
		return nil, fmt.Errorf("no explorer endpoint for network %s", network)
	}

	reqURL, err := c.buildURL(ep, address)
	if err != nil {
		return nil, err
	}

	var doc abidoc.Document
	operation := func() error {
		if err := c.wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		d, err := c.fetchOnce(ctx, reqURL)
		if err != nil {
			return err
		}
		doc = d
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(), uint64(c.maxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Debug("explorer fetch retrying", "address", address.Hex(), "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("fetch abi %s on %s: %w", address.Hex(), network, err)
	}
	return doc, nil
}

func (c *Client) buildURL(ep Endpoint, address common.Address) (string, error) {
	u, err := url.Parse(strings.TrimRight(ep.APIURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse explorer api url: %w", err)
	}

	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getabi")
	q.Set("address", address.Hex())
	if ep.APIKey != "" {
		q.Set("apikey", ep.APIKey)
	}
	if ep.ChainID != 0 {
		q.Set("chainid", strconv.FormatUint(ep.ChainID, 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string) (abidoc.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("explorer status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, backoff.Permanent(fmt.Errorf("explorer status %d", resp.StatusCode))
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}

	if body.Status != "1" {
		if isRateLimited(body) {
			return nil, fmt.Errorf("explorer rate limited: %s", body.Result)
		}
		// "0" with anything else means the contract is missing or unverified.
		return nil, backoff.Permanent(ErrABINotFound)
	}

	doc, err := abidoc.Parse([]byte(body.Result))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return doc, nil
}

func (c *Client) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.limiter.C:
		return nil
	}
}

func isRateLimited(body apiResponse) bool {
	s := strings.ToLower(body.Result + " " + body.Message)
	return strings.Contains(s, "rate limit") || strings.Contains(s, "max rate")
}
