package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	cfgpkg "echoverse/internal/config"
)

// set up slog logger according to level; defaults to info.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// Common flags for config/env/log-level across subcommands
type commonFlags struct {
	config   string
	envFile  string
	logLevel string
	outDir   stringFlag
}

func addCommonFlags(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.config, "config", "config.json", "Path to config file")
	fs.StringVar(&cf.envFile, "env-file", ".env", "Optional dotenv file with API keys")
	fs.StringVar(&cf.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.Var(&cf.outDir, "out", "Output directory for runs")
}

// loadConfig resolves file -> env -> flags. The dotenv file never overrides
// variables already present in the environment.
func loadConfig(cf commonFlags, flagOv cfgpkg.Overrides) (cfgpkg.Config, error) {
	if cf.envFile != "" {
		if err := godotenv.Load(cf.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to load env file", "path", cf.envFile, "err", err)
		}
	}
	fileCfg, err := cfgpkg.LoadFile(cf.config)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	if cf.outDir.set {
		flagOv.OutDir = &cf.outDir.v
	}
	envOv, secrets := cfgpkg.FromEnv()
	cfg := cfgpkg.Merge(fileCfg, envOv, flagOv, secrets)
	if cfg.Debug {
		setupLogger("debug")
	}
	return cfg, nil
}

// stringFlag records whether the flag was given so empty values can still override.
type stringFlag struct {
	v   string
	set bool
}

func (f *stringFlag) String() string { return f.v }
func (f *stringFlag) Set(s string) error {
	f.v = s
	f.set = true
	return nil
}

type boolFlag struct {
	v   bool
	set bool
}

func (f *boolFlag) String() string   { return strconv.FormatBool(f.v) }
func (f *boolFlag) IsBoolFlag() bool { return true }
func (f *boolFlag) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	f.v = b
	f.set = true
	return nil
}
