package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	cfgpkg "echoverse/internal/config"
	"echoverse/internal/paths"
	"echoverse/internal/storage"
)

const audioCacheControl = "public, max-age=300"

type uploader interface {
	Bucket() string
	KeyForRun(runID, filename string) string
	UploadFile(ctx context.Context, key, localPath, contentType, cacheControl, downloadName string) error
	Exists(ctx context.Context, key string) (bool, error)
	CopyToLatest(ctx context.Context, srcKey, filename, contentType, cacheControl, downloadName string) error
}

var newUploader = func(ctx context.Context, cfg cfgpkg.Config) (uploader, error) {
	u, err := storage.New(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.Region)
	if err != nil {
		return nil, err
	}
	return u, nil
}

type publishFile struct {
	name         string
	contentType  string
	downloadName string
}

// echoverse publish
func cmdPublish(args []string) error {
	var cf commonFlags
	var runID, bucket, prefix, region stringFlag
	var overwrite boolFlag
	var includeText bool

	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addCommonFlags(fs, &cf)
	fs.Var(&runID, "run", "Run id to publish (required)")
	fs.Var(&bucket, "bucket", "S3 bucket")
	fs.Var(&prefix, "prefix", "S3 key prefix")
	fs.Var(&region, "region", "AWS region")
	fs.BoolVar(&includeText, "include-text", false, "Also upload rewritten.txt and meta.json")
	fs.Var(&overwrite, "overwrite", "Replace objects that already exist")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	setupLogger(cf.logLevel)

	if !runID.set {
		return errors.New("--run is required")
	}
	if err := storage.ValidateRunID(runID.v); err != nil {
		return err
	}

	var flagOv cfgpkg.Overrides
	if bucket.set {
		flagOv.S3Bucket = &bucket.v
	}
	if prefix.set {
		flagOv.S3Prefix = &prefix.v
	}
	if region.set {
		flagOv.Region = &region.v
	}
	if overwrite.set {
		flagOv.Overwrite = &overwrite.v
	}
	cfg, err := loadConfig(cf, flagOv)
	if err != nil {
		return err
	}
	if err := cfgpkg.ValidateForPublish(cfg); err != nil {
		return err
	}

	files := []publishFile{{name: paths.AudioFilename, contentType: "audio/mpeg", downloadName: paths.DownloadFilename}}
	if includeText {
		files = append(files,
			publishFile{name: paths.RewrittenFilename, contentType: "text/plain; charset=utf-8"},
			publishFile{name: paths.MetaFilename, contentType: "application/json"},
		)
	}

	b := paths.New(cfg.OutDir)
	for _, f := range files {
		if _, err := os.Stat(runFile(b, runID.v, f.name)); err != nil {
			if errors.Is(err, os.ErrNotExist) && f.name == paths.AudioFilename {
				return fmt.Errorf("run %s has no audio: %w", runID.v, storage.ErrArtifactNotFound)
			}
			return err
		}
	}

	ctx := context.Background()
	up, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}
	return publishRun(ctx, os.Stdout, up, b, runID.v, files, cfg.Overwrite)
}

func publishRun(ctx context.Context, w io.Writer, up uploader, b *paths.Builder, runID string, files []publishFile, overwrite bool) error {
	for _, f := range files {
		key := up.KeyForRun(runID, f.name)
		if !overwrite {
			exists, err := up.Exists(ctx, key)
			if err != nil {
				return fmt.Errorf("check %s: %w", key, err)
			}
			if exists {
				return fmt.Errorf("s3://%s/%s already exists (use --overwrite)", up.Bucket(), key)
			}
		}
		if err := up.UploadFile(ctx, key, runFile(b, runID, f.name), f.contentType, audioCacheControl, f.downloadName); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		if err := up.CopyToLatest(ctx, key, f.name, f.contentType, audioCacheControl, f.downloadName); err != nil {
			return fmt.Errorf("copy %s to latest: %w", key, err)
		}
		slog.Info("published", "runID", runID, "key", key)
		fmt.Fprintf(w, "s3://%s/%s\n", up.Bucket(), key)
	}
	return nil
}

func runFile(b *paths.Builder, runID, name string) string {
	switch name {
	case paths.AudioFilename:
		return b.RunAudio(runID)
	case paths.RewrittenFilename:
		return b.RunRewritten(runID)
	case paths.MetaFilename:
		return b.RunMeta(runID)
	default:
		return filepath.Join(b.RunDir(runID), name)
	}
}
