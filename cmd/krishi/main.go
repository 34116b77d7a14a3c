package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"krishi/internal/assistant"
	"krishi/internal/bus"
	"krishi/internal/config"
)

func main() {
	config.RegisterFlags(cli.CommandLine)
	url := cli.StringP("url", "u", "", "Url of hub (overrides bus.url)")
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.Bus.URL = *url
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel(),
	})))

	log.Info("Starting Krishi shard", "name", cfg.Bus.Name)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	asst, closeSTT, err := assistant.Build(cfg)
	if err != nil {
		log.Error("Failed to build assistant", "err", err)
		os.Exit(1)
	}
	defer closeSTT()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shard := bus.NewShard(bus.Options{URL: cfg.Bus.URL, Name: cfg.Bus.Name, Reconnect: cfg.Bus.Reconnect})
	if err := shard.Run(ctx, handler(asst)); err != nil {
		log.Error("Shard stopped", "err", err)
		os.Exit(1)
	}
}

func handler(asst *assistant.Assistant) bus.Handler {
	return func(ctx context.Context, in bus.Envelope) (bus.Envelope, bool) {
		var ans assistant.Answer
		switch in.Kind {
		case bus.KindText:
			lang := in.Language
			if lang == "" {
				lang = "english"
			}
			ans = asst.Ask(ctx, in.Content, lang)
		case bus.KindAudio:
			var err error
			ans, err = asst.Listen(ctx, in.Content, in.Audio)
			if err != nil {
				log.Error("Failed to transcribe", "from", in.From, "err", err)
				return bus.Envelope{Kind: bus.KindError, Content: err.Error()}, true
			}
		default:
			log.Debug("Ignoring envelope", "kind", in.Kind)
			return bus.Envelope{}, false
		}
		return bus.Envelope{
			Kind:     bus.KindAnswer,
			Content:  ans.Response,
			Language: ans.Language,
			Audio:    ans.Audio,
		}, true
	}
}
