// medivoice-cli talks to a running medivoice server from the terminal.
//
//	medivoice-cli ask "I have a headache"
//	medivoice-cli session
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/teslashibe/medi-voice/internal/config"
	"github.com/teslashibe/medi-voice/internal/log"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: medivoice-cli [flags] <command> [args]

commands:
  ask <question>   ask one question over HTTP
  session          open a voice session and type utterances

flags:`)
	cli.PrintDefaults()
}

func main() {
	url := cli.StringP("url", "u", config.ServerURL(), "Server base URL")
	timeout := cli.DurationP("timeout", "t", 60*time.Second, "Request timeout")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	cli.Usage = usage
	cli.Parse()

	log.Init(*logLevel)

	args := cli.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "ask":
		question := strings.TrimSpace(strings.Join(args[1:], " "))
		if question == "" {
			fmt.Fprintln(os.Stderr, "ask: question is required")
			os.Exit(2)
		}
		err = ask(os.Stdout, *url, *timeout, question)
	case "session":
		err = runSession(*url, os.Stdin, os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
