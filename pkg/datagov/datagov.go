// Package datagov reads daily mandi (wholesale market) prices from the
// Open Government Data platform at data.gov.in.
package datagov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultURL is the "Current Daily Price of Various Commodities from
	// Various Markets (Mandi)" resource.
	DefaultURL   = "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070"
	DefaultLimit = 1000

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// StatusError reports a non-200 answer from the API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

// Record is one market observation. Prices are kept as the API returns them
// (strings or numbers depending on the export).
type Record struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	Grade       string `json:"grade"`
	ArrivalDate string `json:"arrival_date"`
	MinPrice    Price  `json:"min_price"`
	MaxPrice    Price  `json:"max_price"`
	ModalPrice  Price  `json:"modal_price"`
}

// Price is a raw price field. The API serves it as a string in some exports
// and as a number in others.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = Price(n.String())
	return nil
}

func (p Price) String() string { return string(p) }

type response struct {
	Records []Record `json:"records"`
}

type Config struct {
	APIKey string
	URL    string // DefaultURL when empty
	Limit  int    // DefaultLimit when <= 0
}

type Client struct {
	http *http.Client
	cfg  Config
	now  func() time.Time
}

func NewClient(httpClient *http.Client, cfg Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Client{http: httpClient, cfg: cfg, now: time.Now}
}

// Records fetches up to limit records from the first page.
func (c *Client) Records(ctx context.Context, limit int) ([]Record, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("api-key", c.cfg.APIKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", "0")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out.Records, nil
}

// MarketPrice describes the best matching modal price for crop around location.
// Lookup misses and non-200 replies are reported as text; only transport
// failures are errors.
func (c *Client) MarketPrice(ctx context.Context, crop, location string) (string, error) {
	records, err := c.Records(ctx, c.cfg.Limit)
	if err != nil {
		return statusText(err)
	}
	if len(records) == 0 {
		return "No data available from Data.gov.in", nil
	}

	var matches []Record
	for _, r := range records {
		if MatchCrop(crop, r.Commodity) && MatchLocation(location, r.State) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No data found for '%s' in Data.gov.in database", crop), nil
	}

	for _, r := range matches {
		if !numericPrice(r.ModalPrice.String()) {
			continue
		}
		return c.describe(r, crop), nil
	}
	return fmt.Sprintf("Price data incomplete for '%s'", crop), nil
}

func (c *Client) describe(r Record, crop string) string {
	commodity := or(r.Commodity, crop)
	state := or(r.State, "Unknown State")
	market := or(r.Market, "Unknown Market")
	date := or(r.ArrivalDate, c.now().Format("02/01/2006"))

	variety := ""
	if r.Variety != "" && r.Variety != commodity {
		variety = " (" + r.Variety + ")"
	}
	return fmt.Sprintf("Current %s%s price in %s: ₹%s/quintal (Market: %s, Date: %s, Source: Data.gov.in)",
		commodity, variety, state, r.ModalPrice.String(), market, date)
}

// statusText turns a non-200 reply into tool text and passes other errors on.
func statusText(err error) (string, error) {
	var se *StatusError
	if errors.As(err, &se) {
		return "API error: " + se.Error(), nil
	}
	return "", err
}

// Locations lists the states that currently report prices for crop.
func (c *Client) Locations(ctx context.Context, crop string) (string, error) {
	records, err := c.Records(ctx, 200)
	if err != nil {
		return statusText(err)
	}

	needle := strings.ToLower(crop)
	seen := map[string]bool{}
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Commodity), needle) && r.State != "" {
			seen[r.State] = true
		}
	}
	if len(seen) == 0 {
		return fmt.Sprintf("No %s data found in current dataset", crop), nil
	}

	states := make([]string, 0, len(seen))
	for s := range seen {
		states = append(states, s)
	}
	sort.Strings(states)

	title := cases.Title(language.English).String(crop)
	return fmt.Sprintf("%s price data available in: %s", title, strings.Join(states, ", ")), nil
}

// MatchCrop is deliberately loose: substring, shared three-letter prefix,
// or rice reported as paddy.
func MatchCrop(crop, commodity string) bool {
	crop = strings.ToLower(strings.TrimSpace(crop))
	commodity = strings.ToLower(commodity)
	if crop == "" {
		return false
	}
	return strings.Contains(commodity, crop) ||
		strings.HasPrefix(commodity, prefix3(crop)) ||
		(crop == "rice" && strings.Contains(commodity, "paddy"))
}

// MatchLocation accepts everything when location is empty.
func MatchLocation(location, state string) bool {
	location = strings.ToLower(strings.TrimSpace(location))
	state = strings.ToLower(state)
	if location == "" {
		return true
	}
	return strings.Contains(state, location) || strings.HasPrefix(state, prefix3(location))
}

func prefix3(s string) string {
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// numericPrice accepts digits with dots, e.g. "2000" or "2000.50".
func numericPrice(s string) bool {
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
