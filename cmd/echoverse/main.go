package main

import (
	"fmt"
	"log/slog"
	"os"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return 0
	}

	sub := args[0]
	switch sub {
	case "serve":
		if err := cmdServe(args[1:]); err != nil {
			slog.Error("serve failed", "err", err)
			return 1
		}
		return 0
	case "generate":
		if err := cmdGenerate(args[1:]); err != nil {
			slog.Error("generate failed", "err", err)
			return 1
		}
		return 0
	case "publish":
		if err := cmdPublish(args[1:]); err != nil {
			slog.Error("publish failed", "err", err)
			return 1
		}
		return 0
	case "version":
		fmt.Println(version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n\n", sub)
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `echoverse %s

Usage:
  echoverse <subcommand> [flags]

Subcommands:
  serve     Run the audiobook web page
  generate  Rewrite text and synthesize it to MP3 once
  publish   Upload a generated run to S3 and print its keys
  version   Print version

Run "echoverse <subcommand> -h" for flags.
`, version)
}
