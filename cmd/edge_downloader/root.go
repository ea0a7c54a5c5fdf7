package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/italolelis/edge_downloader/internal/catalog"
	"github.com/italolelis/edge_downloader/internal/config"
	"github.com/italolelis/edge_downloader/internal/notifier"
	"github.com/italolelis/edge_downloader/internal/resolver"
	"github.com/italolelis/edge_downloader/internal/storage"
	"github.com/italolelis/edge_downloader/internal/storage/sqlite"
	"github.com/italolelis/edge_downloader/internal/telemetry"
	"github.com/spf13/cobra"
)

var errNoHistory = errors.New("download history is disabled, set DB_PATH to enable it")

// app carries what every command shares. backend is built from the config
// unless a test injects one.
type app struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	backend resolver.Backend
	notify  notifier.Notifier
}

func (a *app) reconciler() (*resolver.Reconciler, error) {
	links, err := catalog.LegacyLinks()
	if err != nil {
		return nil, fmt.Errorf("failed to load legacy links: %w", err)
	}

	if a.backend == nil {
		a.backend = catalog.NewInstrumentedClient(catalog.NewClient(catalog.Config{
			CatalogURL: a.cfg.CatalogURL,
			CDPURL:     a.cfg.CDPAPIURL,
			FwlinkURL:  a.cfg.FwlinkURL,
			Timeout:    a.cfg.RequestTimeout,
		}), a.tel)
	}

	return resolver.NewReconciler(a.backend, links), nil
}

func (a *app) notifier() notifier.Notifier {
	if a.notify == nil {
		a.notify = notifier.Discard{}
		if a.cfg.DiscordWebhookURL != "" {
			a.notify = notifier.NewDiscordNotifier(a.cfg.DiscordWebhookURL)
		}
	}

	return a.notify
}

// history opens the download history. It returns errNoHistory when DB_PATH
// is empty.
func (a *app) history(ctx context.Context) (storage.DownloadRepository, *sql.DB, error) {
	if a.cfg.DBPath == "" {
		return nil, nil, errNoHistory
	}

	db, err := sqlite.InitDB(ctx, a.cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open download history: %w", err)
	}

	return sqlite.NewInstrumentedDownloadRepository(db, a.tel), db, nil
}

func newRootCmd(a *app, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "edge_downloader",
		Short:         "Find and download Microsoft Edge installers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newDownloadCmd(a, out),
		newListCmd(a, out),
		newDumpCmd(a, out),
		newHistoryCmd(a, out),
	)

	return cmd
}
