package main

import (
	"context"
	"time"

	"defectlog/internal/capture"
	"defectlog/internal/catalog"
	"defectlog/internal/db"
	"defectlog/internal/document"
	"defectlog/internal/ident"
	"defectlog/internal/query"
	"defectlog/internal/render"
	"defectlog/internal/share"
	"defectlog/internal/stats"
	"defectlog/internal/storage"
	"defectlog/internal/store"
	"defectlog/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// components is everything a command may need, built once per invocation.
type components struct {
	config *types.Config
	logger *logrus.Logger
	handle *db.Handle

	catalog   *catalog.Catalog
	defects   *store.DefectRepository
	prefs     *store.PreferenceRepository
	memos     *ident.MemoCounter
	photos    *storage.PhotoLibrary
	query     *query.Engine
	stats     *stats.Service
	capture   *capture.Service
	assembler *document.Assembler
	exporter  *document.Exporter
	sharer    share.Sharer
}

type setupOptions struct {
	jsonLogs bool
	// degraded keeps going without a store when it cannot be opened; reads
	// then come back empty and writes fail.
	degraded bool
}

func setup(cCtx *cli.Context, opts setupOptions) (*components, error) {
	config, err := loadConfig(cCtx.String("env-prefix"))
	if err != nil {
		return nil, err
	}

	logger := newLogger(config, opts.jsonLogs)
	ctx := cCtx.Context

	handle, err := openStore(ctx, config, logger)
	if err != nil {
		if !opts.degraded {
			return nil, err
		}
		logger.WithError(err).Error("store unavailable, continuing with empty data")
	}

	c := &components{
		config:  config,
		logger:  logger,
		handle:  handle,
		catalog: catalog.Default(),
		defects: store.NewDefectRepository(handle),
		prefs:   store.NewPreferenceRepository(handle),
		photos:  storage.NewPhotoLibrary(config.DataDir),
	}

	c.memos = ident.NewMemoCounter(c.prefs)
	c.query = query.NewEngine(logger, c.defects)
	c.stats = stats.NewService(logger, c.defects)
	c.capture = capture.NewService(logger, c.catalog, c.defects, c.prefs, c.photos, ident.NewGenerator())

	c.assembler, err = document.NewAssembler(logger, c.catalog, c.memos, config.SiteMemoTemplate)
	if err != nil {
		c.Close()
		return nil, err
	}

	renderer, err := render.New(config, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.exporter = document.NewExporter(logger, renderer, config.DataDir)

	c.sharer, err = newSharer(ctx, config, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func openStore(ctx context.Context, config *types.Config, logger *logrus.Logger) (*db.Handle, error) {
	handle, err := db.Open(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, handle, logger); err != nil {
		handle.Close()
		return nil, err
	}

	logger.WithField("driver", handle.Dialect).Debug("store ready")
	return handle, nil
}

// newSharer uploads to S3 when a bucket is configured. Without one every
// share attempt fails with types.ErrShareUnavailable.
func newSharer(ctx context.Context, config *types.Config, logger *logrus.Logger) (share.Sharer, error) {
	if config.ShareBucket == "" {
		return share.Unavailable{}, nil
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(config.ShareLinkTTLMin) * time.Minute
	return share.NewS3Sharer(logger, s3.NewFromConfig(awsConfig), config.ShareBucket, config.SharePrefix, ttl), nil
}

func (c *components) Close() {
	if err := c.handle.Close(); err != nil {
		c.logger.WithError(err).Warn("failed to close store")
	}
}
