package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"echoverse/internal/audiobook"
	cfgpkg "echoverse/internal/config"
	"echoverse/internal/paths"
	"echoverse/internal/storage"
)

// echoverse generate
func cmdGenerate(args []string) error {
	var cf commonFlags
	var text, file, voice, copyTo stringFlag
	var overwrite boolFlag

	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	fs.Var(&text, "text", "Text to narrate")
	fs.Var(&file, "file", "Read text from file (\"-\" for stdin)")
	fs.Var(&voice, "voice", "TTS voice")
	fs.Var(&copyTo, "copy-to", "Also copy the MP3 to this path")
	fs.Var(&overwrite, "overwrite", "Allow --copy-to to replace an existing file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	setupLogger(cf.logLevel)

	var flagOv cfgpkg.Overrides
	if voice.set {
		flagOv.Voice = &voice.v
	}
	if overwrite.set {
		flagOv.Overwrite = &overwrite.v
	}
	cfg, err := loadConfig(cf, flagOv)
	if err != nil {
		return err
	}
	if err := cfgpkg.ValidateForRun(cfg); err != nil {
		return err
	}

	input, err := readInput(text, file)
	if err != nil {
		return err
	}
	if copyTo.set {
		if err := paths.CheckOverwrite([]string{copyTo.v}, cfg.Overwrite); err != nil {
			return err
		}
	}

	pipeline, store, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	res := pipeline.Run(context.Background(), input)
	if res.Warning != "" {
		return errors.New(res.Warning)
	}
	for _, n := range res.Notices {
		slog.Warn(n, "runID", res.RunID)
	}
	for _, e := range res.Errors {
		slog.Error(e, "runID", res.RunID)
	}
	if !res.HasAudio() {
		return fmt.Errorf("run %s produced no audio", res.RunID)
	}
	if copyTo.set {
		if err := copyArtifact(store, res.RunID, copyTo.v); err != nil {
			return err
		}
	}

	printSummary(os.Stdout, store.Paths(), res)
	return nil
}

func readInput(text, file stringFlag) (string, error) {
	switch {
	case text.set && file.set:
		return "", errors.New("use either --text or --file, not both")
	case text.set:
		return text.v, nil
	case file.set && file.v != "-":
		b, err := os.ReadFile(file.v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
}

func copyArtifact(store *storage.FileStore, runID, dst string) error {
	data, err := store.ReadAudio(runID)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func printSummary(w io.Writer, b *paths.Builder, res *audiobook.Result) {
	fmt.Fprintf(w, "run:       %s\n", res.RunID)
	fmt.Fprintf(w, "rewrite:   %s\n", res.Rewrite.Status)
	fmt.Fprintf(w, "audio:     %s (%d bytes)\n", res.Audio.Path, res.Audio.Size)
	fmt.Fprintf(w, "text:      %s\n", b.RunRewritten(res.RunID))
	fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(res.RewrittenText()))
}
