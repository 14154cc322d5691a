// Package gmo implements the venue capability interface for GMO Coin.
// API reference: https://api.coin.z.com/docs/
package gmo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

const (
	defaultPublicEndpoint  = "https://api.coin.z.com/public"
	defaultPrivateEndpoint = "https://api.coin.z.com/private"

	connectTimeout = 3 * time.Second
	readTimeout    = 10 * time.Second
)

// Client is the REST client for GMO Coin.
type Client struct {
	apiKey          string
	apiSecret       string
	publicEndpoint  string
	privateEndpoint string
	httpClient      *http.Client
	now             func() time.Time
}

// NewClient creates a GMO Coin client. Credentials may be empty for
// public-only (monitor mode) use.
func NewClient(apiKey, apiSecret string) *Client {
	return &Client{
		apiKey:          apiKey,
		apiSecret:       apiSecret,
		publicEndpoint:  defaultPublicEndpoint,
		privateEndpoint: defaultPrivateEndpoint,
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		now: time.Now,
	}
}

// Venue returns the venue identifier.
func (c *Client) Venue() domain.Venue { return domain.VenueGMO }

// envelope is the wrapper GMO puts around every response. A non-zero status
// means the venue rejected the call.
type envelope struct {
	Status   int             `json:"status"`
	Data     json.RawMessage `json:"data"`
	Messages []struct {
		MessageCode   string `json:"message_code"`
		MessageString string `json:"message_string"`
	} `json:"messages"`
}

// FetchTicker returns the top of the order book for the asset.
func (c *Client) FetchTicker(ctx context.Context, asset domain.Asset) (domain.TickerSnapshot, error) {
	var data struct {
		Asks []bookLevel `json:"asks"`
		Bids []bookLevel `json:"bids"`
	}
	path := "/v1/orderbooks?symbol=" + string(asset)
	if err := c.public(ctx, path, &data); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("gmo: fetch ticker: %w", err)
	}
	if len(data.Asks) == 0 || len(data.Bids) == 0 {
		return domain.TickerSnapshot{}, fmt.Errorf("gmo: empty order book for %s: %w", asset, domain.ErrVenueError)
	}

	t := domain.TickerSnapshot{
		Venue:     domain.VenueGMO,
		Asset:     asset,
		FetchedAt: c.now().UTC(),
	}
	for _, field := range []struct {
		dst *float64
		src jsonNumber
	}{
		{&t.BestAskPrice, data.Asks[0].Price},
		{&t.BestAskVolume, data.Asks[0].Size},
		{&t.BestBidPrice, data.Bids[0].Price},
		{&t.BestBidVolume, data.Bids[0].Size},
	} {
		f, err := field.src.Float64()
		if err != nil {
			return domain.TickerSnapshot{}, fmt.Errorf("gmo: fetch ticker: %w", err)
		}
		*field.dst = f
	}
	return t, nil
}

// FetchBalance returns available JPY and BTC balances.
func (c *Client) FetchBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	var assets []struct {
		Symbol    string     `json:"symbol"`
		Available jsonNumber `json:"available"`
	}
	if err := c.private(ctx, http.MethodGet, "/v1/account/assets", nil, &assets); err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("gmo: fetch balance: %w", err)
	}

	bal := domain.BalanceSnapshot{Venue: domain.VenueGMO, FetchedAt: c.now().UTC()}
	for _, a := range assets {
		var dst *float64
		switch a.Symbol {
		case "JPY":
			dst = &bal.FiatAmount
		case string(domain.AssetBTC):
			dst = &bal.BaseAmount
		default:
			continue
		}
		f, err := a.Available.Float64()
		if err != nil {
			return domain.BalanceSnapshot{}, fmt.Errorf("gmo: fetch balance %s: %w", a.Symbol, err)
		}
		*dst = f
	}
	return bal, nil
}

// PlaceMarketOrder submits a market order for volume units of the asset.
func (c *Client) PlaceMarketOrder(ctx context.Context, asset domain.Asset, side domain.OrderSide, volume float64) error {
	gmoSide := "BUY"
	if side == domain.OrderSideSell {
		gmoSide = "SELL"
	}
	req := map[string]string{
		"symbol":        string(asset),
		"side":          gmoSide,
		"executionType": "MARKET",
		"size":          strconv.FormatFloat(volume, 'f', -1, 64),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("gmo: marshal order: %w", err)
	}

	var orderID jsonNumber
	if err := c.private(ctx, http.MethodPost, "/v1/order", body, &orderID); err != nil {
		return fmt.Errorf("gmo: place %s order: %w", gmoSide, err)
	}
	return nil
}

// public performs an unauthenticated GET against the public API.
func (c *Client) public(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.publicEndpoint+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out, domain.ErrVenueError)
}

// private performs a signed request against the private API. The signature is
// HMAC-SHA256(secret, timestamp+method+path+body) hex-encoded.
func (c *Client) private(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.privateEndpoint+path, reader)
	if err != nil {
		return err
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + method + path + string(body)))

	req.Header.Set("API-KEY", c.apiKey)
	req.Header.Set("API-TIMESTAMP", ts)
	req.Header.Set("API-SIGN", hex.EncodeToString(mac.Sum(nil)))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Order placement failures are the venue declining, not erroring.
	rejectKind := domain.ErrVenueError
	if method == http.MethodPost {
		rejectKind = domain.ErrOrderRejected
	}
	return c.do(req, out, rejectKind)
}

// do executes the request and unwraps GMO's response envelope. rejectKind is
// the error kind wrapped when the venue answers with a non-zero status.
func (c *Client) do(req *http.Request, out any, rejectKind error) error {
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
		return fmt.Errorf("%w: status %d: %s", rejectKind, resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", domain.ErrVenueError, err)
	}
	if env.Status != 0 {
		msg := ""
		if len(env.Messages) > 0 {
			msg = env.Messages[0].MessageString
		}
		return fmt.Errorf("%w: status %d: %s", rejectKind, env.Status, msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", domain.ErrVenueError, err)
		}
	}
	return nil
}

// bookLevel is one price level; GMO encodes numbers as strings.
type bookLevel struct {
	Price jsonNumber `json:"price"`
	Size  jsonNumber `json:"size"`
}

// jsonNumber accepts both string and numeric JSON encodings.
type jsonNumber string

func (n *jsonNumber) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = jsonNumber(s)
		return nil
	}
	*n = jsonNumber(b)
	return nil
}

// Float64 parses the number. A value the venue sent but we cannot parse is a
// venue error; treating it as zero would corrupt balances downstream.
func (n jsonNumber) Float64() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed number %q", domain.ErrVenueError, string(n))
	}
	return f, nil
}
