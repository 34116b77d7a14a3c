package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/lmittmann/tint"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"krishi/internal/assistant"
	"krishi/internal/audio"
	"krishi/internal/config"
	"krishi/internal/ipc"
	"krishi/internal/notify"
	"krishi/pkg/audioconv"
)

type daemon struct {
	cfg   config.Config
	asst  *assistant.Assistant
	rec   *audio.Recorder
	micMu sync.Mutex
}

func main() {
	config.RegisterFlags(cli.CommandLine)
	noMic := cli.Bool("no-mic", false, "Disable the microphone (text and file requests only)")
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel(),
	})))

	log.Info("Booting up")

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

	d := &daemon{cfg: cfg, asst: asst}

	if !*noMic {
		rec := audio.NewRecorder(audio.Options{})
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()
		d.rec = rec
		log.Debug("Loaded recorder")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := ipc.Listen(cfg.IPC.Socket)
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.IPC.Socket, "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "socket", cfg.IPC.Socket)

	if err := srv.Serve(ctx, d.handle); err != nil {
		log.Error("IPC server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shutting down")
}

func (d *daemon) handle(ctx context.Context, req ipc.Request) ipc.Reply {
	switch req.Cmd {
	case ipc.CmdTrigger:
		return d.trigger(ctx)
	case ipc.CmdAsk:
		if strings.TrimSpace(req.Text) == "" {
			return ipc.Errorf("empty question")
		}
		lang := req.Language
		if lang == "" {
			lang = "english"
		}
		return d.speak(ctx, d.asst.Ask(ctx, req.Text, lang))
	case ipc.CmdFile:
		data, err := os.ReadFile(req.File)
		if err != nil {
			return ipc.Errorf("read %s: %v", req.File, err)
		}
		ans, err := d.asst.Listen(ctx, filepath.Base(req.File), data)
		if err != nil {
			log.Error("Failed to transcribe", "file", req.File, "err", err)
			return ipc.Errorf("%v", err)
		}
		return d.speak(ctx, ans)
	default:
		log.Warn("Unknown command", "cmd", req.Cmd)
		return ipc.Errorf("unknown command %q", req.Cmd)
	}
}

func (d *daemon) trigger(ctx context.Context) ipc.Reply {
	if d.rec == nil {
		return ipc.Errorf("microphone disabled")
	}
	if !d.micMu.TryLock() {
		return ipc.Errorf("already listening")
	}
	defer d.micMu.Unlock()

	if d.cfg.TTS.Chime != "" {
		if err := notify.Chime(ctx, d.cfg.TTS.Chime); err != nil {
			log.Warn("Failed to play chime", "err", err)
		}
	}

	log.Info("Starting listening")

	pcm, err := d.rec.RecordUtterance(ctx)
	if err != nil {
		log.Error("Failed to record", "err", err)
		return ipc.Errorf("record: %v", err)
	}

	log.Info("Recorded", "samples", len(pcm))

	clip, err := audioconv.EncodeWAV(pcm, audioconv.SampleRate)
	if err != nil {
		return ipc.Errorf("encode: %v", err)
	}
	ans, err := d.asst.Listen(ctx, "mic.wav", clip)
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		return ipc.Errorf("%v", err)
	}
	return d.speak(ctx, ans)
}

func (d *daemon) speak(ctx context.Context, ans assistant.Answer) ipc.Reply {
	if len(ans.Audio) > 0 {
		if err := notify.Play(ctx, ans.Audio); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Failed to voice out", "err", err)
		}
	}
	return ipc.Reply{Transcript: ans.Transcript, Language: ans.Language, Response: ans.Response}
}
