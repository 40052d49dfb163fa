// Command concierge answers institutional questions from rules, curated
// Q&A pairs and documents.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/concierge/internal/adapters/driving/cli"
	"github.com/custodia-labs/concierge/internal/app"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetLoader(load)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func load(ctx context.Context, opts cli.LoadOptions) (*cli.Services, func() error, error) {
	a, err := app.New(ctx, app.Options{
		Home:         opts.Home,
		Ephemeral:    opts.Ephemeral,
		SettingsOnly: opts.SettingsOnly,
		DocsDir:      opts.DocsDir,
		QAFile:       opts.QAFile,
	})
	if err != nil {
		return nil, nil, err
	}

	svc := &cli.Services{Settings: a.Settings}
	if !opts.SettingsOnly {
		svc.Answer = a.Answer
		svc.Index = a.Index
		svc.Sync = a.Sync
		svc.Stats = a.Stats
		svc.Metrics = a.Metrics.Handler()
	}
	return svc, a.Close, nil
}
