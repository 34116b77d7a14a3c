package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"krishi/internal/config"
	"krishi/internal/ipc"
)

const usage = `usage:
  krishi-ctl                      listen on the microphone and answer aloud
  krishi-ctl ask [--lang L] TEXT  answer a typed question
  krishi-ctl file PATH            answer a recorded question (wav/mp3/ogg)
`

func main() {
	config.RegisterFlags(cli.CommandLine)
	lang := cli.String("lang", "english", "Answer language for ask")
	timeout := cli.Duration("timeout", 3*time.Minute, "How long to wait for the answer")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	cfg, err := config.Load(cli.CommandLine)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	req, err := request(cli.Args(), *lang)
	if err != nil {
		cli.Usage()
		os.Exit(2)
	}

	reply, err := ipc.Send(cfg.IPC.Socket, req, *timeout)
	if err != nil {
		if reply.Error == "" {
			fmt.Fprintln(os.Stderr, "krishi-daemon not running:", err)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}

	if reply.Transcript != "" {
		fmt.Printf("you (%s): %s\n", reply.Language, reply.Transcript)
	}
	fmt.Println("krishi:", reply.Response)
}

func request(args []string, lang string) (ipc.Request, error) {
	if len(args) == 0 {
		return ipc.Request{Cmd: ipc.CmdTrigger}, nil
	}
	switch args[0] {
	case ipc.CmdTrigger:
		return ipc.Request{Cmd: ipc.CmdTrigger}, nil
	case ipc.CmdAsk:
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			return ipc.Request{}, fmt.Errorf("ask needs a question")
		}
		return ipc.Request{Cmd: ipc.CmdAsk, Text: text, Language: lang}, nil
	case ipc.CmdFile:
		if len(args) != 2 {
			return ipc.Request{}, fmt.Errorf("file needs one path")
		}
		// the daemon may run with a different working directory
		path, err := filepath.Abs(args[1])
		if err != nil {
			return ipc.Request{}, err
		}
		return ipc.Request{Cmd: ipc.CmdFile, File: path}, nil
	default:
		return ipc.Request{}, fmt.Errorf("unknown command %q", args[0])
	}
}
