package myscheme

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const DefaultListingURL = "https://www.myscheme.gov.in/search/category/Agriculture%2CRural%20%26%20Environment"

var ErrNoCards = errors.New("no scheme cards on listing page")

type ScraperOptions struct {
	ListingURL string        // DefaultListingURL when empty
	Delay      time.Duration // pause between detail pages
	MaxSchemes int           // 0 = all cards
}

type Scraper struct {
	http *http.Client
	opt  ScraperOptions
}

func NewScraper(httpClient *http.Client, opt ScraperOptions) *Scraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opt.ListingURL == "" {
		opt.ListingURL = DefaultListingURL
	}
	return &Scraper{http: httpClient, opt: opt}
}

// Scrape walks the listing page and then every scheme page it links to.
// A detail page that fails to load keeps the card data and moves on.
func (s *Scraper) Scrape(ctx context.Context) ([]Scheme, error) {
	base, err := url.Parse(s.opt.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	doc, err := s.fetch(ctx, s.opt.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}

	cards := ParseListing(doc, base)
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	if s.opt.MaxSchemes > 0 && len(cards) > s.opt.MaxSchemes {
		cards = cards[:s.opt.MaxSchemes]
	}
	log.Info("Found schemes", "count", len(cards))

	for i := range cards {
		if i > 0 && s.opt.Delay > 0 {
			select {
			case <-ctx.Done():
				return cards[:i], ctx.Err()
			case <-time.After(s.opt.Delay):
			}
		}

		page, err := s.fetch(ctx, cards[i].Link)
		if err != nil {
			log.Warn("Failed to load scheme page", "title", cards[i].Title, "err", err)
			continue
		}
		ParseDetails(page, &cards[i])
		log.Debug("Scraped scheme", "title", cards[i].Title)
	}
	return cards, nil
}

func (s *Scraper) fetch(ctx context.Context, link string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// ParseListing extracts scheme cards. Cards without a titled link are skipped.
func ParseListing(doc *goquery.Document, base *url.URL) []Scheme {
	var out []Scheme
	doc.Find("div.p-4").Each(func(_ int, card *goquery.Selection) {
		a := card.Find("h2[id^='scheme-name'] a").First()
		title := clean(a.Text())
		href, ok := a.Attr("href")
		if title == "" || !ok {
			return
		}

		link := href
		if base != nil {
			if u, err := base.Parse(href); err == nil {
				link = u.String()
			}
		}

		out = append(out, Scheme{
			Title:       title,
			Link:        link,
			Ministry:    clean(card.Find("h2.mt-3").First().Text()),
			Description: clean(card.Find("span[aria-label*='Brief description']").First().Text()),
		})
	})
	return out
}

// ParseDetails fills the long-form sections from a scheme page.
func ParseDetails(doc *goquery.Document, s *Scheme) {
	s.Details = clean(doc.Find("div#details").Text())
	s.Eligibility = clean(doc.Find("div#eligibility").Text())
	s.ApplicationProcess = clean(doc.Find("div#application-process").Text())
	s.DocumentsRequired = clean(doc.Find("div#documents-required").Text())
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
