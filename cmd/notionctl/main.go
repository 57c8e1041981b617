package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/notion-blocks/internal/app"
	"github.com/samvad-hq/notion-blocks/internal/config"
	"github.com/samvad-hq/notion-blocks/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var failure *failureError
		if !errors.As(err, &failure) {
			fmt.Fprintf(os.Stderr, "notionctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var editor *app.Editor
	defer func() {
		if editor != nil {
			if err := editor.Close(); err != nil {
				logger.ErrorObj("editor close failed", "error", err)
			}
		}
		_ = logger.Close()
	}()

	// The editor is built on first use so that --help works without a token.
	open := func(ctx context.Context) (*app.Editor, error) {
		if editor != nil {
			return editor, nil
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		log, err := logger.Init(cfg)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		logger.DebugObj("notionctl starting", "config", cfg.Redacted())

		editor, err = app.NewEditor(ctx, cfg, log)
		if err != nil {
			logger.ErrorObj("failed to initialize editor", "error", err)
			return nil, err
		}
		return editor, nil
	}

	root := newRootCmd(open)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
