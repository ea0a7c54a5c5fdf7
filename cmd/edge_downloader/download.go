package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/edge_downloader/internal/downloader"
	"github.com/italolelis/edge_downloader/internal/downloader/progress"
	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
	"github.com/italolelis/edge_downloader/internal/notifier"
	"github.com/italolelis/edge_downloader/internal/storage"
	"github.com/spf13/cobra"
)

const downloadHelp = `
Download the latest or a given version of an Edge installer.

Without --output the matching links are printed, recommended ones marked.
Only the recommended files are downloaded unless --all is set.

Defaults: product Edge, channel Stable, OS Windows. Architecture and file
type default per OS (x64/exe on Windows, x64/deb on Linux, universal/pkg on
MacOS, arm64/apk on Android, arm64/msix on WCOS).

    $ edge_downloader download --channel Beta --os Linux --type rpm -o ./out
    $ edge_downloader download --product EdgeEnterprise --arch x86 --version 130.0.2849.56
`

type downloadOptions struct {
	identityOptions

	threads int    // --threads
	output  string // --output
	all     bool   // --all
}

func newDownloadCmd(a *app, out io.Writer) *cobra.Command {
	o := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "download the latest or a specific Edge installer",
		Long:  downloadHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.Context(), a, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.product, "product", "", "product (Edge, EdgeEnterprise, EdgeWebView2, EdgeUpdate)")
	f.StringVar(&o.channel, "channel", "", "channel (Stable, Beta, Dev, Canary)")
	f.StringVar(&o.os, "os", "", "operating system (Windows, Win7And8, MacOS, Linux, Android, WCOS)")
	f.StringVar(&o.arch, "arch", "", "architecture (x86, x64, arm, arm64, universal)")
	f.StringVar(&o.fileType, "type", "", "file type (exe, msi, msix, deb, rpm, pkg, dmg, apk)")
	f.StringVar(&o.version, "version", "", "version, e.g. 140.0.3436.0 (latest if omitted)")
	f.IntVarP(&o.threads, "threads", "t", a.cfg.MaxParallel, "parallel piece downloads, 1 streams the file (max 64)")
	f.StringVarP(&o.output, "output", "o", a.cfg.OutputDir, "output directory, links are only printed when empty")
	f.BoolVar(&o.all, "all", false, "download every matching file, not only the recommended ones")

	return cmd
}

func (o *downloadOptions) run(ctx context.Context, a *app, out io.Writer) error {
	if o.threads < downloader.MinParallelism || o.threads > downloader.MaxParallelism {
		return fmt.Errorf("invalid number of threads %d, must be between %d and %d",
			o.threads, downloader.MinParallelism, downloader.MaxParallelism)
	}

	t, err := o.resolve()
	if err != nil {
		return err
	}

	ctx, logger := logctx.With(ctx, "identity", t.Identity.String())

	if t.Identity.OS == edge.OSAndroid && t.Identity.ChannelOrStable() == edge.ChannelStable {
		fmt.Fprintln(out, "Edge Stable for Android is only linked through third-party stores such as APKPure and Tencent.")
	}

	r, err := a.reconciler()
	if err != nil {
		return err
	}

	set, err := r.ResolveArtifacts(ctx, edge.ProductVersion{Identity: t.Identity, Version: t.Version})
	if err != nil {
		return fmt.Errorf("failed to generate download links: %w", err)
	}

	set.RemoveIf(func(art edge.Artifact) bool {
		ft, ok := art.FileType()
		return !ok || ft != t.FileType
	})

	if set.Len() == 0 {
		return fmt.Errorf("no %s download links found for %s", t.FileType, t.Identity)
	}

	logger.Debug("resolved artifacts", "artifacts", set.Len())

	items := set.Items()
	marks := recommended(items, t.Identity.Arch)

	fmt.Fprintf(out, "Total download links found: %d\n\n", len(items))

	if o.output == "" {
		for i, item := range items {
			name := item.FileName
			if marks[i] {
				name += " (Recommended)"
			}

			fmt.Fprintf(out, "%s\n%s\n\n", name, item.URL)
		}

		return nil
	}

	return o.download(ctx, a, out, items, marks)
}

func (o *downloadOptions) download(ctx context.Context, a *app, out io.Writer, items []edge.Artifact, marks []bool) error {
	logger := logctx.LoggerFromContext(ctx)

	opts := []downloader.Option{
		downloader.WithTelemetry(a.tel),
		downloader.WithProgress(consoleProgress(os.Stderr)),
	}

	repo, db, err := a.history(ctx)

	switch {
	case errors.Is(err, errNoHistory):
	case err != nil:
		return err
	default:
		defer db.Close()

		opts = append(opts, downloader.WithHistory(repo))
	}

	dl := downloader.New(opts...)
	notif := a.notifier()

	for i, item := range items {
		if !marks[i] && !o.all {
			continue
		}

		target := filepath.Join(o.output, item.FileName)
		fmt.Fprintf(out, "Downloading %s to %s ...\n", item.FileName, target)

		err := dl.Download(ctx, item.URL, target, item.Sha256, o.threads)
		if errors.Is(err, storage.ErrDownloaded) {
			fmt.Fprintf(out, "%s is already downloaded, skipping\n", item.FileName)

			continue
		}

		if err != nil {
			if notifyErr := notif.Notify(ctx, notifier.DownloadFailed(item.FileName, err)); notifyErr != nil {
				logger.Error("failed to send notification", "err", notifyErr)
			}

			return err
		}

		var size int64
		if info, err := os.Stat(target); err == nil {
			size = info.Size()
		}

		if notifyErr := notif.Notify(ctx, notifier.DownloadFinished(item.FileName, size)); notifyErr != nil {
			logger.Error("failed to send notification", "err", notifyErr)
		}
	}

	return nil
}

// consoleProgress redraws one status line per file.
func consoleProgress(w io.Writer) func(fileName string) progress.RenderFunc {
	return func(fileName string) progress.RenderFunc {
		return func(downloaded, total, unit int64) {
			fmt.Fprintf(w, "\r%s %6.2f%% (%s / %s)", fileName, float64(unit)/100,
				humanize.Bytes(uint64(downloaded)), humanize.Bytes(uint64(total)))

			if unit == progress.Scale {
				fmt.Fprintln(w)
			}
		}
	}
}
