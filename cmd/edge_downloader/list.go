package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/spf13/cobra"
)

const listHelp = `
List the latest known version of every Edge product.

By default only the catalog and the common legacy links are consulted.
--all adds every legacy link and probes the newest unreleased Windows Canary
builds, which takes noticeably longer.

iOS is not supported. Edge Stable for Android is only linked through
third-party stores. When more than one Windows Canary version is listed the
highest one exists but has not been released yet.
`

type listOptions struct {
	all bool // --all
}

func newListCmd(a *app, out io.Writer) *cobra.Command {
	o := &listOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "list the latest available Edge versions",
		Long:    listHelp,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.Context(), a, out)
		},
	}

	cmd.Flags().BoolVar(&o.all, "all", false, "include every legacy link and the Canary probe")

	return cmd
}

func (o *listOptions) run(ctx context.Context, a *app, out io.Writer) error {
	r, err := a.reconciler()
	if err != nil {
		return err
	}

	products := r.BasicProducts
	if o.all {
		products = r.AllProducts
	}

	list, err := products(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve products: %w", err)
	}

	fmt.Fprintf(out, "Total products found: %d\n", len(list))
	fmt.Fprintln(out, formatProducts(list))

	return nil
}

func formatProducts(list []edge.ProductVersion) string {
	table := uitable.New()
	table.AddRow("PRODUCT", "CHANNEL", "VERSION", "OS", "ARCHITECTURE")

	for _, pv := range list {
		channel := "N/A"
		if pv.Identity.Channel != nil {
			channel = pv.Identity.Channel.String()
		}

		version := "Unknown"
		if pv.Version.IsResolved() {
			version = pv.Version.String()
		}

		table.AddRow(pv.Identity.Product, channel, version, pv.Identity.OS, strings.ToLower(pv.Identity.Arch.String()))
	}

	return table.String()
}
