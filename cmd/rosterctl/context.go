package main

import (
	"context"
	"io"

	"rostersync/internal/app"
	"rostersync/internal/platform/config"
	"rostersync/internal/platform/logger"
)

// commandContext opens the backends once per invocation, on first use.
type commandContext struct {
	jsonOutput bool
	verbose    bool

	load func() (*config.Config, error)
	app  *app.App
}

func newCommandContext() *commandContext {
	return &commandContext{load: config.Load}
}

func (c *commandContext) ensureApp(ctx context.Context, stderr io.Writer) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg, err := c.load()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	a, err := app.Open(ctx, cfg, logger.NewWithWriter(stderr, level))
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}
