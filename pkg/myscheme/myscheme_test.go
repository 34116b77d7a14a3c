package myscheme

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<div class="p-4">
  <h2 id="scheme-name-1"><a href="/schemes/pmkisan">PM-Kisan Samman Nidhi</a></h2>
  <h2 class="mt-3">Ministry of Agriculture and Farmers Welfare</h2>
  <span aria-label="Brief description of the scheme">Income support of
     6000 rupees per year to farmer families.</span>
</div>
<div class="p-4">
  <h2 id="scheme-name-2"><a href="/schemes/pmfby">Pradhan Mantri Fasal Bima Yojana</a></h2>
  <span aria-label="Brief description of the scheme">Crop insurance against yield loss.</span>
</div>
<div class="p-4"><p>advertisement</p></div>
</body></html>`

func detailHTML(name string) string {
	return fmt.Sprintf(`<html><body>
<div id="details">%s details</div>
<div id="eligibility">Small and marginal farmers</div>
<div id="application-process">Apply online</div>
<div id="documents-required">Aadhaar, land records</div>
</body></html>`, name)
}

func TestScrape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/listing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingHTML)
	})
	mux.HandleFunc("/schemes/pmkisan", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailHTML("PM-Kisan"))
	})
	mux.HandleFunc("/schemes/pmfby", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewScraper(srv.Client(), ScraperOptions{ListingURL: srv.URL + "/listing"})
	schemes, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, schemes, 2)

	first := schemes[0]
	assert.Equal(t, "PM-Kisan Samman Nidhi", first.Title)
	assert.Equal(t, srv.URL+"/schemes/pmkisan", first.Link)
	assert.Equal(t, "Ministry of Agriculture and Farmers Welfare", first.Ministry)
	assert.Equal(t, "Income support of 6000 rupees per year to farmer families.", first.Description)
	assert.Equal(t, "PM-Kisan details", first.Details)
	assert.Equal(t, "Aadhaar, land records", first.DocumentsRequired)

	second := schemes[1]
	assert.Equal(t, "Pradhan Mantri Fasal Bima Yojana", second.Title)
	assert.Empty(t, second.Ministry)
	assert.Empty(t, second.Details)
}

func TestScrapeNoCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>loading...</body></html>`)
	}))
	defer srv.Close()

	_, err := NewScraper(nil, ScraperOptions{ListingURL: srv.URL}).Scrape(context.Background())
	require.ErrorIs(t, err, ErrNoCards)
}

func TestCatalogRoundTripAndSearch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheme.json")
	schemes := []Scheme{
		{Title: "Kisan Credit Card", Description: "Short term credit and loan for farmers"},
		{Title: "Soil Health Card", Description: "Soil testing", Details: "Helps farmers choose fertilizer"},
		{Title: "PM Fasal Bima Yojana", Description: "Crop insurance", Details: "insurance premium subsidy"},
	}
	require.NoError(t, SaveCatalog(path, schemes))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Equal(t, schemes, cat.Schemes)

	got := cat.Search("insurance", 3)
	require.Len(t, got, 1)
	assert.Equal(t, "PM Fasal Bima Yojana", got[0].Title)

	got = cat.Search("card farmers", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "Kisan Credit Card", got[0].Title)

	assert.Empty(t, cat.Search("", 3))
	assert.Empty(t, cat.Search("zz", 3))
}

func TestLoadCatalogYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- title: Paramparagat Krishi Vikas Yojana
  link: https://example.org/pkvy
  description: Organic farming clusters
`), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat.Schemes, 1)
	assert.Equal(t, "Organic farming clusters", cat.Schemes[0].Description)
}

func TestCatalogFind(t *testing.T) {
	c := &Catalog{Schemes: []Scheme{
		{Title: "Kisan Credit Card"},
		{Title: "PM-KISAN"},
		{Title: "Pradhan Mantri Fasal Bima Yojana"},
	}}

	s, ok := c.Find("pm-kisan")
	require.True(t, ok)
	assert.Equal(t, "PM-KISAN", s.Title)

	s, ok = c.Find("Fasal Bima")
	require.True(t, ok)
	assert.Equal(t, "Pradhan Mantri Fasal Bima Yojana", s.Title)

	s, ok = c.Find("credit card for kisan")
	require.True(t, ok)
	assert.Equal(t, "Kisan Credit Card", s.Title)

	_, ok = c.Find("gobar dhan")
	assert.False(t, ok)
	_, ok = c.Find("  ")
	assert.False(t, ok)

	var nilCatalog *Catalog
	_, ok = nilCatalog.Find("pm-kisan")
	assert.False(t, ok)
}
