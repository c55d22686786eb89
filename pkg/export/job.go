package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/file"
	"github.com/fieldvine/billing/pkg/queue"
)

// DefaultRetention is how long a finished artifact stays downloadable
// before the retention job removes it.
const DefaultRetention = 7 * 24 * time.Hour

// GenerateExportPayload is the queue payload for one export generation.
type GenerateExportPayload struct {
	ExportID uuid.UUID `json:"export_id"`
}

// Generator builds export archives inside the queue worker.
type Generator struct {
	store      Store
	collectors CollectorRegistry
	storage    file.Storage
	retention  time.Duration
	logger     *slog.Logger
	nowFn      func() time.Time
}

// GeneratorOption configures the Generator.
type GeneratorOption func(*Generator)

// WithRetention overrides the artifact retention period.
func WithRetention(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.retention = d
		}
	}
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGeneratorClock overrides the clock, for tests.
func WithGeneratorClock(nowFn func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if nowFn != nil {
			g.nowFn = nowFn
		}
	}
}

// NewGenerator creates an export generator.
func NewGenerator(store Store, collectors CollectorRegistry, storage file.Storage, opts ...GeneratorOption) (*Generator, error) {
	if store == nil || storage == nil {
		return nil, ErrMissingDependencies
	}
	if len(collectors) == 0 {
		return nil, ErrNoCollectors
	}

	g := &Generator{
		store:      store,
		collectors: collectors,
		storage:    storage,
		retention:  DefaultRetention,
		logger:     slog.Default(),
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Handler returns the queue handler generating export archives. A
// record already in a terminal state is skipped, so re-enqueued or
// duplicated jobs never rebuild a delivered artifact. Failures are
// recorded and returned to the queue for backoff retry.
func (g *Generator) Handler() queue.Handler {
	return queue.NewJobHandler(func(ctx context.Context, p GenerateExportPayload) error {
		e, err := g.store.Get(ctx, p.ExportID)
		if err != nil {
			return err
		}

		if e.Status.Terminal() {
			g.logger.Info("export already generated, skipping",
				slog.String("export_id", e.ID.String()),
				slog.String("status", string(e.Status)))
			return nil
		}

		obj, err := g.generate(ctx, e)
		if err != nil {
			if markErr := g.store.MarkFailed(ctx, e.ID, err.Error(), g.nowFn()); markErr != nil {
				g.logger.Error("failed to record export failure",
					slog.String("export_id", e.ID.String()),
					slog.String("error", markErr.Error()))
			}
			return err
		}

		now := g.nowFn()
		if err := g.store.MarkCompleted(ctx, e.ID, obj.Key, obj.URL, obj.Size, now.Add(g.retention), now); err != nil {
			return err
		}

		g.logger.Info("export generated",
			slog.String("export_id", e.ID.String()),
			slog.String("tenant_id", e.TenantID.String()),
			slog.Int64("size", obj.Size))
		return nil
	})
}

// generate assembles the ZIP in memory and writes it through storage.
// One CSV entry per registered dataset, entries in stable name order.
func (g *Generator) generate(ctx context.Context, e *DataExport) (*file.Object, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, dataset := range g.collectors.datasets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		header, rows, err := g.collectors[dataset](ctx, e.TenantID)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", dataset, err)
		}

		entry, err := zw.Create(dataset + ".csv")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToBuildZip, err)
		}

		cw := csv.NewWriter(entry)
		if err := cw.Write(header); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToBuildZip, err)
		}
		if err := cw.WriteAll(rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToBuildZip, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToBuildZip, err)
	}

	return g.storage.Put(ctx, ArtifactKey(e.TenantID, e.ID), &buf, "application/zip")
}
