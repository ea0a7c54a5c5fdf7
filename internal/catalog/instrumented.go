package catalog

import (
	"context"

	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/telemetry"
)

// InstrumentedClient wraps Client with telemetry.
type InstrumentedClient struct {
	client    *Client
	telemetry *telemetry.Telemetry
}

// NewInstrumentedClient creates a new instrumented backend client.
func NewInstrumentedClient(client *Client, tel *telemetry.Telemetry) *InstrumentedClient {
	return &InstrumentedClient{
		client:    client,
		telemetry: tel,
	}
}

// Products returns the memoized catalog with telemetry.
func (c *InstrumentedClient) Products(ctx context.Context) ([]ProductInfo, error) {
	var result []ProductInfo

	err := c.telemetry.InstrumentBackendOperation(ctx, "catalog", "products", func(ctx context.Context) error {
		var err error
		result, err = c.client.Products(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GenerateDownloadInfo lists versioned files with telemetry.
func (c *InstrumentedClient) GenerateDownloadInfo(ctx context.Context, id edge.Identity, version edge.Version) ([]DownloadInfo, error) {
	var result []DownloadInfo

	err := c.telemetry.InstrumentBackendOperation(ctx, "cdp", "generate_download_info", func(ctx context.Context) error {
		var err error
		result, err = c.client.GenerateDownloadInfo(ctx, id, version)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// BatchUpdates queries current versions with telemetry.
func (c *InstrumentedClient) BatchUpdates(ctx context.Context, ids ...edge.Identity) ([]UpdateInfo, error) {
	var result []UpdateInfo

	err := c.telemetry.InstrumentBackendOperation(ctx, "cdp", "batch_updates", func(ctx context.Context) error {
		var err error
		result, err = c.client.BatchUpdates(ctx, ids...)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// VersionExists probes a version with telemetry.
func (c *InstrumentedClient) VersionExists(ctx context.Context, id edge.Identity, version edge.Version) (bool, error) {
	var result bool

	err := c.telemetry.InstrumentBackendOperation(ctx, "cdp", "version_exists", func(ctx context.Context) error {
		var err error
		result, err = c.client.VersionExists(ctx, id, version)

		return err
	})

	return result, err
}

// ResolveFwlink resolves a legacy link with telemetry.
func (c *InstrumentedClient) ResolveFwlink(ctx context.Context, linkID int) (string, error) {
	var result string

	err := c.telemetry.InstrumentBackendOperation(ctx, "fwlink", "resolve", func(ctx context.Context) error {
		var err error
		result, err = c.client.ResolveFwlink(ctx, linkID)

		return err
	})

	return result, err
}
