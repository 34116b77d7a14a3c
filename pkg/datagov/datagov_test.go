package datagov

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"records": [
	{"state": "Punjab", "market": "Ludhiana", "commodity": "Wheat", "variety": "Dara", "arrival_date": "01/10/2026", "modal_price": "2450"},
	{"state": "NCT of Delhi", "market": "Azadpur", "commodity": "Tomato", "variety": "Hybrid", "arrival_date": "02/10/2026", "modal_price": "NR"},
	{"state": "NCT of Delhi", "market": "Keshopur", "commodity": "Tomato", "variety": "Tomato", "arrival_date": "02/10/2026", "modal_price": 1800},
	{"state": "Delhi", "market": "Azadpur", "commodity": "Tomato", "variety": "Local", "modal_price": "2000.50"},
	{"state": "Uttar Pradesh", "market": "Agra", "commodity": "Paddy(Dhan)(Common)", "variety": "Common", "arrival_date": "02/10/2026", "modal_price": "2100"}
]}`

func serve(t *testing.T, status int, body string, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		assert.Equal(t, "secret", r.URL.Query().Get("api-key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func newTestClient(url string) *Client {
	c := NewClient(nil, Config{APIKey: "secret", URL: url})
	c.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestMarketPriceSkipsNonNumericModal(t *testing.T) {
	srv := serve(t, http.StatusOK, sample, nil)
	defer srv.Close()

	out, err := newTestClient(srv.URL).MarketPrice(context.Background(), "tomato", "Delhi")
	require.NoError(t, err)
	assert.Equal(t, "Current Tomato price in NCT of Delhi: ₹1800/quintal (Market: Keshopur, Date: 02/10/2026, Source: Data.gov.in)", out)
}

func TestMarketPriceVarietyAndMissingDate(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"records":[{"state":"Delhi","market":"Azadpur","commodity":"Tomato","variety":"Local","modal_price":"2000.50"}]}`, nil)
	defer srv.Close()

	out, err := newTestClient(srv.URL).MarketPrice(context.Background(), "Tomato", "")
	require.NoError(t, err)
	assert.Equal(t, "Current Tomato (Local) price in Delhi: ₹2000.50/quintal (Market: Azadpur, Date: 18/10/2026, Source: Data.gov.in)", out)
}

func TestMarketPriceRiceMatchesPaddy(t *testing.T) {
	srv := serve(t, http.StatusOK, sample, nil)
	defer srv.Close()

	out, err := newTestClient(srv.URL).MarketPrice(context.Background(), "rice", "uttar")
	require.NoError(t, err)
	assert.Contains(t, out, "Paddy(Dhan)(Common)")
	assert.Contains(t, out, "₹2100/quintal")
}

func TestMarketPriceMisses(t *testing.T) {
	srv := serve(t, http.StatusOK, sample, nil)
	defer srv.Close()
	c := newTestClient(srv.URL)

	out, err := c.MarketPrice(context.Background(), "cotton", "")
	require.NoError(t, err)
	assert.Equal(t, "No data found for 'cotton' in Data.gov.in database", out)

	empty := serve(t, http.StatusOK, `{"records":[]}`, nil)
	defer empty.Close()
	out, err = newTestClient(empty.URL).MarketPrice(context.Background(), "wheat", "")
	require.NoError(t, err)
	assert.Equal(t, "No data available from Data.gov.in", out)

	incomplete := serve(t, http.StatusOK, `{"records":[{"state":"Punjab","commodity":"Maize","modal_price":""}]}`, nil)
	defer incomplete.Close()
	out, err = newTestClient(incomplete.URL).MarketPrice(context.Background(), "maize", "")
	require.NoError(t, err)
	assert.Equal(t, "Price data incomplete for 'maize'", out)
}

func TestMarketPriceHTTPError(t *testing.T) {
	srv := serve(t, http.StatusForbidden, `denied`, nil)
	defer srv.Close()

	out, err := newTestClient(srv.URL).MarketPrice(context.Background(), "wheat", "")
	require.NoError(t, err)
	assert.Equal(t, "API error: HTTP 403", out)

	out, err = newTestClient(srv.URL).Locations(context.Background(), "wheat")
	require.NoError(t, err)
	assert.Equal(t, "API error: HTTP 403", out)
}

func TestRecordsStatusError(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, ``, nil)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Records(context.Background(), 10)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
}

func TestLocations(t *testing.T) {
	var hits int
	srv := serve(t, http.StatusOK, sample, &hits)
	defer srv.Close()
	c := newTestClient(srv.URL)

	out, err := c.Locations(context.Background(), "tomato")
	require.NoError(t, err)
	assert.Equal(t, "Tomato price data available in: Delhi, NCT of Delhi", out)

	out, err = c.Locations(context.Background(), "onion")
	require.NoError(t, err)
	assert.Equal(t, "No onion data found in current dataset", out)
	assert.Equal(t, 2, hits)
}

func TestMatchers(t *testing.T) {
	assert.True(t, MatchCrop("tomato", "Tomato"))
	assert.True(t, MatchCrop("tomatoes", "Tomato"))
	assert.True(t, MatchCrop("rice", "Paddy(Dhan)"))
	assert.False(t, MatchCrop("", "Tomato"))
	assert.False(t, MatchCrop("onion", "Tomato"))

	assert.True(t, MatchLocation("", "Kerala"))
	assert.True(t, MatchLocation("delhi", "NCT of Delhi"))
	assert.True(t, MatchLocation("Maharashtra state", "Maharashtra"))
	assert.False(t, MatchLocation("Goa", "Kerala"))
}
