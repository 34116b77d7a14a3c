package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/lmittmann/tint"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"krishi/internal/config"
	"krishi/internal/proxy"
	"krishi/pkg/myscheme"
)

func main() {
	config.RegisterFlags(cli.CommandLine)
	out := cli.StringP("out", "o", "", "Output file (defaults to schemes.catalog)")
	maxSchemes := cli.IntP("max", "n", 0, "Stop after this many schemes (0 = all)")
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel(),
	})))

	path := *out
	if path == "" {
		path = cfg.Schemes.Catalog
	}

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy.Addr, cfg.Proxy.Timeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy.Addr, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scraper := myscheme.NewScraper(httpClient, myscheme.ScraperOptions{
		ListingURL: cfg.Schemes.ListingURL,
		Delay:      cfg.Schemes.Delay,
		MaxSchemes: *maxSchemes,
	})
	schemes, err := scraper.Scrape(ctx)
	if err != nil {
		log.Error("Scrape failed", "err", err)
		os.Exit(1)
	}

	if err := myscheme.SaveCatalog(path, schemes); err != nil {
		log.Error("Failed to save catalog", "path", path, "err", err)
		os.Exit(1)
	}
	log.Info("Saved schemes", "count", len(schemes), "path", path)
}
