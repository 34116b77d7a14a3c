package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"krishi/internal/assistant"
	"krishi/internal/config"
)

func main() {
	config.RegisterFlags(cli.CommandLine)
	out := cli.StringP("out", "o", "response.mp3", "Where to write the spoken answer")
	text := cli.StringP("text", "t", "", "Ask a typed question instead of an audio file")
	lang := cli.String("lang", "english", "Answer language for --text")
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: cfg.LogLevel(),
	})))

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}
	if *text == "" && cli.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: krishi-ask [flags] AUDIO_FILE | krishi-ask --text QUESTION")
		os.Exit(2)
	}

	asst, closeSTT, err := assistant.Build(cfg)
	if err != nil {
		log.Error("Failed to build assistant", "err", err)
		os.Exit(1)
	}
	defer closeSTT()

	ctx := context.Background()

	var ans assistant.Answer
	if *text != "" {
		ans = asst.Ask(ctx, *text, *lang)
	} else {
		path := cli.Arg(0)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("Failed to read audio", "path", path, "err", err)
			os.Exit(1)
		}
		ans, err = asst.Listen(ctx, filepath.Base(path), data)
		if err != nil {
			log.Error("Failed to transcribe", "path", path, "err", err)
			os.Exit(1)
		}
		fmt.Printf("Transcript (%s): %s\n", ans.Language, ans.Transcript)
	}
	fmt.Println("Response:", ans.Response)

	if len(ans.Audio) == 0 {
		return
	}
	if err := os.WriteFile(*out, ans.Audio, 0o644); err != nil {
		log.Error("Failed to write audio", "path", *out, "err", err)
		os.Exit(1)
	}
	log.Info("Saved spoken answer", "path", *out)
}
