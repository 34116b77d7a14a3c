package assistant

import (
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"krishi/internal/agent"
	"krishi/internal/config"
	"krishi/internal/llm"
	"krishi/internal/proxy"
	"krishi/internal/tools"
	"krishi/internal/tts"
	"krishi/pkg/datagov"
	"krishi/pkg/myscheme"
	"krishi/pkg/plantdisease"
	"krishi/pkg/stt"
)

// Build wires model, tools, agent, transcription and speech from cfg. The
// returned close func releases the local whisper model, if one was loaded.
func Build(cfg config.Config) (*Assistant, func(), error) {
	httpClient, err := proxy.NewHTTPClient(cfg.Proxy.Addr, cfg.Proxy.Timeout)
	if err != nil {
		return nil, nil, err
	}

	registry, err := tools.NewFarmRegistry(toolDeps(cfg, httpClient))
	if err != nil {
		return nil, nil, fmt.Errorf("register tools: %w", err)
	}
	log.Info("Tools ready", "tools", registry.Names())

	model := llm.NewOpenAI(
		openai.NewClient(
			option.WithBaseURL(cfg.LLM.BaseURL),
			option.WithAPIKey(cfg.LLM.APIKey),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(cfg.LLM.MaxRetries),
		),
		llm.Options{Model: cfg.LLM.Model, Temperature: cfg.LLM.Temperature},
	)
	ag := agent.New(model, registry, agent.Options{
		SystemPrompt:     cfg.Agent.SystemPrompt,
		MaxParallelTools: cfg.Agent.MaxParallelTools,
		TurnTimeout:      cfg.Agent.TurnTimeout,
	})

	closer := func() {}
	var transcriber Transcriber
	switch cfg.STT.Engine {
	case "local":
		lang := cfg.STT.Language
		if lang == "" {
			lang = "auto"
		}
		w, err := stt.NewTranscriber(cfg.STT.ModelPath, stt.Options{Language: lang, InitialPrompt: cfg.STT.Prompt})
		if err != nil {
			return nil, nil, fmt.Errorf("load whisper: %w", err)
		}
		closer = func() { w.Close() }
		transcriber = w
	default:
		transcriber = stt.NewRemote(
			openai.NewClient(
				option.WithBaseURL(cfg.STT.BaseURL),
				option.WithAPIKey(cfg.STT.APIKey),
				option.WithHTTPClient(httpClient),
			),
			stt.RemoteOptions{Model: cfg.STT.Model, Language: cfg.STT.Language, Prompt: cfg.STT.Prompt},
		)
	}

	var speech Synthesizer
	switch {
	case !cfg.TTS.Enabled:
	case cfg.TTS.APIKey == "":
		log.Warn("No API key for speech endpoint, answers will be text only", "url", cfg.TTS.BaseURL)
	default:
		speech = tts.New(
			openai.NewClient(
				option.WithBaseURL(cfg.TTS.BaseURL),
				option.WithAPIKey(cfg.TTS.APIKey),
				option.WithHTTPClient(httpClient),
			),
			tts.Options{
				Model:        cfg.TTS.Model,
				Voice:        cfg.TTS.Voice,
				Instructions: cfg.TTS.Instructions,
				Speed:        cfg.TTS.Speed,
			},
		)
	}

	return New(ag, transcriber, speech), closer, nil
}

func toolDeps(cfg config.Config, httpClient *http.Client) tools.Deps {
	var d tools.Deps

	if cfg.DataGov.APIKey != "" {
		d.Market = datagov.NewClient(httpClient, datagov.Config{
			APIKey: cfg.DataGov.APIKey,
			URL:    cfg.DataGov.URL,
			Limit:  cfg.DataGov.Limit,
		})
	} else {
		log.Warn("DATA_GOV_API not set, market price tools disabled")
	}

	if path := cfg.Schemes.Catalog; path != "" {
		catalog, err := myscheme.LoadCatalog(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("Scheme catalog not found, using built-in scheme list", "path", path)
		case err != nil:
			log.Error("Failed to load scheme catalog", "path", path, "err", err)
		default:
			log.Info("Loaded scheme catalog", "path", path, "schemes", len(catalog.Schemes))
			d.Schemes = catalog
		}
	}

	if cfg.Disease.Endpoint != "" {
		d.Classifier = plantdisease.NewClient(httpClient, cfg.Disease.Endpoint)
	}
	return d
}
