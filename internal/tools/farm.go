package tools

import (
	"context"
	"fmt"
	"strings"

	"krishi/pkg/myscheme"
	"krishi/pkg/plantdisease"
)

const (
	MarketPriceTool   = "get_market_price"
	CropLocationsTool = "get_crop_locations"
	SchemesTool       = "get_government_schemes"
	SchemeDetailsTool = "get_scheme_details"
	DiseaseTool       = "classify_crop_disease"
)

type MarketData interface {
	MarketPrice(ctx context.Context, crop, location string) (string, error)
	Locations(ctx context.Context, crop string) (string, error)
}

type SchemeSearcher interface {
	Search(query string, limit int) []myscheme.Scheme
	Find(name string) (myscheme.Scheme, bool)
}

type Classifier interface {
	ClassifyFile(ctx context.Context, path string) (plantdisease.Prediction, error)
}

// Deps are the data sources behind the farming tools. Schemes and Classifier
// are optional; without them the scheme details and disease tools are not
// offered.
type Deps struct {
	Market     MarketData
	Schemes    SchemeSearcher
	Classifier Classifier
}

type MarketPriceArgs struct {
	Crop     string `json:"crop,omitempty" jsonschema_description:"Name of the crop (tomato, wheat, rice, maize, cotton, etc.). Defaults to tomato."`
	Location string `json:"location,omitempty" jsonschema_description:"Indian state or market location. Optional; the best available match is used."`
}

type CropLocationsArgs struct {
	Crop string `json:"crop,omitempty" jsonschema_description:"Name of the crop. Defaults to tomato."`
}

type SchemesArgs struct {
	SchemeType string `json:"scheme_type,omitempty" jsonschema_description:"Type of scheme: general, subsidy, loan or insurance. Defaults to general."`
	Keyword    string `json:"keyword,omitempty" jsonschema_description:"Optional keywords to search the scheme directory for, e.g. drip irrigation."`
}

type SchemeDetailsArgs struct {
	SchemeName string `json:"scheme_name" jsonschema_description:"Name of the scheme, e.g. PM-KISAN, Pradhan Mantri Fasal Bima Yojana, Kisan Credit Card."`
}

type DiseaseArgs struct {
	ImagePath string `json:"image_path" jsonschema_description:"Path of the leaf photo to classify."`
}

var schemeTable = map[string]string{
	"general":   "PM-Kisan Yojana, Pradhan Mantri Fasal Bima Yojana",
	"subsidy":   "Fertilizer Subsidy Scheme, Seed Subsidy Program",
	"loan":      "Kisan Credit Card, Agricultural Term Loan",
	"insurance": "Pradhan Mantri Fasal Bima Yojana",
}

// NewFarmRegistry registers every tool whose data source is available.
func NewFarmRegistry(d Deps) (*Registry, error) {
	r := NewRegistry()

	if d.Market != nil {
		err := Register(r, MarketPriceTool,
			"Get the current government market (mandi) price of a crop from Data.gov.in, optionally near a location.",
			func(ctx context.Context, a MarketPriceArgs) (string, error) {
				return d.Market.MarketPrice(ctx, or(a.Crop, "tomato"), a.Location)
			})
		if err != nil {
			return nil, err
		}

		err = Register(r, CropLocationsTool,
			"Find which states currently report market price data for a crop.",
			func(ctx context.Context, a CropLocationsArgs) (string, error) {
				return d.Market.Locations(ctx, or(a.Crop, "tomato"))
			})
		if err != nil {
			return nil, err
		}
	}

	err := Register(r, SchemesTool,
		"Get information about government schemes for farmers (general, subsidy, loan, insurance).",
		func(_ context.Context, a SchemesArgs) (string, error) {
			return describeSchemes(d.Schemes, a), nil
		})
	if err != nil {
		return nil, err
	}

	if d.Schemes != nil {
		err := Register(r, SchemeDetailsTool,
			"Get eligibility, benefits, documents and how to apply for one specific government scheme.",
			func(_ context.Context, a SchemeDetailsArgs) (string, error) {
				return describeScheme(d.Schemes, a.SchemeName), nil
			})
		if err != nil {
			return nil, err
		}
	}

	if d.Classifier != nil {
		err := Register(r, DiseaseTool,
			"Identify the crop and disease visible in a leaf photo.",
			func(ctx context.Context, a DiseaseArgs) (string, error) {
				p, err := d.Classifier.ClassifyFile(ctx, a.ImagePath)
				if err != nil {
					return "", err
				}
				return p.String(), nil
			})
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

func describeSchemes(catalog SchemeSearcher, a SchemesArgs) string {
	kind := strings.ToLower(strings.TrimSpace(or(a.SchemeType, "general")))
	names, ok := schemeTable[kind]
	if !ok {
		names = schemeTable["general"]
	}
	out := fmt.Sprintf("Available %s schemes: %s", kind, names)

	if catalog == nil {
		return out
	}
	query := a.Keyword
	if query == "" && kind != "general" {
		query = kind
	}
	matches := catalog.Search(query, 3)
	if len(matches) == 0 {
		return out
	}

	parts := make([]string, 0, len(matches))
	for _, s := range matches {
		p := s.Title
		if s.Ministry != "" {
			p += " (" + s.Ministry + ")"
		}
		if s.Description != "" {
			p += ": " + s.Description
		}
		parts = append(parts, p)
	}
	return out + ". Related schemes: " + strings.Join(parts, "; ")
}

func describeScheme(catalog SchemeSearcher, name string) string {
	s, ok := catalog.Find(name)
	if !ok {
		return fmt.Sprintf("Scheme '%s' not found. Try searching for: PM-KISAN, PMFBY, KCC, Soil Health Card", name)
	}

	var b strings.Builder
	b.WriteString(s.Title)
	if s.Ministry != "" {
		b.WriteString(" (" + s.Ministry + ")")
	}
	for _, sec := range []struct{ label, text string }{
		{"Description", s.Description},
		{"Benefits", s.Details},
		{"Eligibility", s.Eligibility},
		{"How to apply", s.ApplicationProcess},
		{"Documents required", s.DocumentsRequired},
		{"Website", s.Link},
	} {
		if t := strings.TrimSpace(sec.text); t != "" {
			fmt.Fprintf(&b, "\n%s: %s", sec.label, t)
		}
	}
	return b.String()
}

func or(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
