package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/italolelis/edge_downloader/internal/cleanup"
	"github.com/italolelis/edge_downloader/internal/storage"
	"github.com/spf13/cobra"
)

const historyHelp = `
History prints the downloads recorded in DB_PATH, e.g:

    $ edge_downloader history
    PATH                                   STATUS      SIZE     DOWNLOADED       SHA256
    out/MicrosoftEdgeEnterpriseX64.msi     verified    180 MB   2 minutes ago    4c1d7e0b9a2f

--prune forgets records whose file is gone. Combined with --keep it also
deletes files downloaded longer ago than the given duration.
`

type historyOptions struct {
	prune bool          // --prune
	keep  time.Duration // --keep
}

func newHistoryCmd(a *app, out io.Writer) *cobra.Command {
	o := &historyOptions{}

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "show or prune the download history",
		Long:    historyHelp,
		Aliases: []string{"hist"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.Context(), a, out)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.prune, "prune", false, "remove records of missing files")
	f.DurationVar(&o.keep, "keep", 0, "with --prune, delete files older than this")

	return cmd
}

func (o *historyOptions) run(ctx context.Context, a *app, out io.Writer) error {
	repo, db, err := a.history(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if o.prune {
		n, err := cleanup.Prune(ctx, repo, o.keep)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Pruned %d records\n", n)

		return nil
	}

	records, err := repo.GetDownloads(ctx)
	if err != nil {
		return fmt.Errorf("failed to list download history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No downloads recorded")

		return nil
	}

	fmt.Fprintln(out, formatHistory(records))

	return nil
}

func formatHistory(records []storage.DownloadRecord) string {
	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("PATH", "STATUS", "SIZE", "DOWNLOADED", "SHA256")

	for _, r := range records {
		digest := hex.EncodeToString(r.Sha256)
		if len(digest) > 12 {
			digest = digest[:12]
		}

		table.AddRow(r.Path, r.Status, humanize.Bytes(uint64(r.Size)), humanize.Time(r.DownloadedAt), digest)
	}

	return table.String()
}
