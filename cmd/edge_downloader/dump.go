package main

import (
	"context"
	"fmt"
	"io"

	"github.com/italolelis/edge_downloader/internal/storage/snapshot"
	"github.com/spf13/cobra"
)

type dumpOptions struct {
	path string // --path
}

func newDumpCmd(a *app, out io.Writer) *cobra.Command {
	o := &dumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "merge every known Edge download into the snapshot file",
		Long: `
Dump resolves every product, including legacy links and the Canary probe, and
merges the download links into the snapshot file. Records already in the file
are kept unless a fresh record covers them.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.Context(), a, out)
		},
	}

	cmd.Flags().StringVar(&o.path, "path", a.cfg.SnapshotPath, "snapshot file")

	return cmd
}

func (o *dumpOptions) run(ctx context.Context, a *app, out io.Writer) error {
	r, err := a.reconciler()
	if err != nil {
		return err
	}

	store := snapshot.NewStore(o.path)

	n, err := r.Dump(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to dump products: %w", err)
	}

	a.tel.RecordSnapshotRecords(n)

	fmt.Fprintf(out, "Total Edge product info dumped: %d\n", n)
	fmt.Fprintf(out, "Edge product info dumped to %s.\n", store.Path())

	return nil
}
