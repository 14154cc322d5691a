// Package coincheck implements the venue capability interface for Coincheck.
// API reference: https://coincheck.com/documents/exchange/api
package coincheck

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

const (
	defaultEndpoint = "https://coincheck.com"

	connectTimeout = 3 * time.Second
	readTimeout    = 10 * time.Second
)

// Client is the REST client for Coincheck.
type Client struct {
	apiKey     string
	apiSecret  string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
	nonce      atomic.Int64
}

// NewClient creates a Coincheck client. Credentials may be empty for
// public-only (monitor mode) use.
func NewClient(apiKey, apiSecret string) *Client {
	c := &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		endpoint:  defaultEndpoint,
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		now: time.Now,
	}
	c.nonce.Store(time.Now().UnixMicro())
	return c
}

// Venue returns the venue identifier.
func (c *Client) Venue() domain.Venue { return domain.VenueCoincheck }

// FetchTicker returns the top of the order book. Coincheck's order_books
// endpoint only serves the BTC/JPY pair.
func (c *Client) FetchTicker(ctx context.Context, asset domain.Asset) (domain.TickerSnapshot, error) {
	if asset != domain.AssetBTC {
		return domain.TickerSnapshot{}, fmt.Errorf("coincheck: unsupported asset %s: %w", asset, domain.ErrVenueError)
	}

	var book struct {
		Asks [][2]json.Number `json:"asks"`
		Bids [][2]json.Number `json:"bids"`
	}
	if err := c.get(ctx, "/api/order_books", &book); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("coincheck: fetch ticker: %w", err)
	}
	if len(book.Asks) == 0 || len(book.Bids) == 0 {
		return domain.TickerSnapshot{}, fmt.Errorf("coincheck: empty order book: %w", domain.ErrVenueError)
	}

	t := domain.TickerSnapshot{
		Venue:     domain.VenueCoincheck,
		Asset:     asset,
		FetchedAt: c.now().UTC(),
	}
	for _, field := range []struct {
		dst *float64
		src json.Number
	}{
		{&t.BestAskPrice, book.Asks[0][0]},
		{&t.BestAskVolume, book.Asks[0][1]},
		{&t.BestBidPrice, book.Bids[0][0]},
		{&t.BestBidVolume, book.Bids[0][1]},
	} {
		f, err := parseNumber(field.src)
		if err != nil {
			return domain.TickerSnapshot{}, fmt.Errorf("coincheck: fetch ticker: %w", err)
		}
		*field.dst = f
	}
	return t, nil
}

// FetchBalance returns available JPY and BTC balances.
func (c *Client) FetchBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	var resp struct {
		Success bool        `json:"success"`
		Error   string      `json:"error"`
		JPY     json.Number `json:"jpy"`
		BTC     json.Number `json:"btc"`
	}
	if err := c.signed(ctx, http.MethodGet, "/api/accounts/balance", nil, &resp); err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("coincheck: fetch balance: %w", err)
	}
	if !resp.Success {
		return domain.BalanceSnapshot{}, fmt.Errorf("coincheck: fetch balance: %s: %w", resp.Error, domain.ErrVenueError)
	}

	jpy, err := parseNumber(resp.JPY)
	if err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("coincheck: fetch balance jpy: %w", err)
	}
	btc, err := parseNumber(resp.BTC)
	if err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("coincheck: fetch balance btc: %w", err)
	}
	return domain.BalanceSnapshot{
		Venue:      domain.VenueCoincheck,
		FiatAmount: jpy,
		BaseAmount: btc,
		FetchedAt:  c.now().UTC(),
	}, nil
}

// PlaceMarketOrder submits a market order. Coincheck denominates market buys
// in JPY, not BTC, so a buy first reads the current best ask and converts the
// requested volume to a fiat amount. That quirk stays inside this client.
func (c *Client) PlaceMarketOrder(ctx context.Context, asset domain.Asset, side domain.OrderSide, volume float64) error {
	payload := map[string]string{"pair": "btc_jpy"}
	switch side {
	case domain.OrderSideBuy:
		ticker, err := c.FetchTicker(ctx, asset)
		if err != nil {
			return fmt.Errorf("coincheck: price for market buy: %w", err)
		}
		fiat := math.Ceil(volume * ticker.BestAskPrice)
		payload["order_type"] = "market_buy"
		payload["market_buy_amount"] = strconv.FormatFloat(fiat, 'f', 0, 64)
	case domain.OrderSideSell:
		payload["order_type"] = "market_sell"
		payload["amount"] = strconv.FormatFloat(volume, 'f', -1, 64)
	default:
		return fmt.Errorf("coincheck: unknown order side %q", side)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("coincheck: marshal order: %w", err)
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.signed(ctx, http.MethodPost, "/api/exchange/orders", body, &resp); err != nil {
		return fmt.Errorf("coincheck: place %s order: %w", payload["order_type"], err)
	}
	if !resp.Success {
		return fmt.Errorf("coincheck: %s declined: %s: %w", payload["order_type"], resp.Error, domain.ErrOrderRejected)
	}
	return nil
}

// parseNumber parses a venue-sent number. A value we cannot parse is a venue
// error; treating it as zero would corrupt balances downstream.
func parseNumber(n json.Number) (float64, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: malformed number %q", domain.ErrVenueError, string(n))
	}
	return f, nil
}

// get performs an unauthenticated GET.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// signed performs an authenticated request. The signature is
// HMAC-SHA256(secret, nonce+url+body) hex-encoded; nonces must be strictly
// increasing per API key.
func (c *Client) signed(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	url := c.endpoint + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}

	nonce := strconv.FormatInt(c.nonce.Add(1), 10)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(nonce + url + string(body)))

	req.Header.Set("ACCESS-KEY", c.apiKey)
	req.Header.Set("ACCESS-NONCE", nonce)
	req.Header.Set("ACCESS-SIGNATURE", hex.EncodeToString(mac.Sum(nil)))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrConnectionFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := domain.ErrVenueError
		if req.Method == http.MethodPost && strings.Contains(req.URL.Path, "/orders") {
			kind = domain.ErrOrderRejected
		}
		return fmt.Errorf("%w: status %d: %s", kind, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrVenueError, err)
		}
	}
	return nil
}
