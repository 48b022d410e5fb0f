// Package importer loads provider export files from disk into the database.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/pulseboard/internal/ingest"
	"github.com/claude/pulseboard/internal/models"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	SamplesInserted   int64
	SamplesDuplicated int64
	SamplesRejected   int

	BySource map[string]int64
}

func (s *Stats) add(source string, inserted, duplicated int64, rejected int) {
	if s.BySource == nil {
		s.BySource = map[string]int64{}
	}
	s.FilesProcessed++
	s.SamplesInserted += inserted
	s.SamplesDuplicated += duplicated
	s.SamplesRejected += rejected
	s.BySource[source] += inserted
}

// Store is the persistence used for AutoSync .hae files, which bypass the
// provider converters.
type Store interface {
	InsertHeartRate(ctx context.Context, rows []models.HeartRateRow) (int64, error)
}

// Importer reads an export directory laid out as
//
//	<dir>/fitbit/*.json
//	<dir>/googleFit/*.json
//	<dir>/appleHealth/*.json
//	<dir>/HealthMetrics/heart_rate/*.hae   (Health Auto Export AutoSync)
//
// and stores every heart-rate sample it finds.
type Importer struct {
	provider   *ingest.Provider
	store      Store
	log        *slog.Logger
	dryRun     bool
	decompress func(ctx context.Context, path string) ([]byte, error)
	stats      Stats
}

// New creates a new Importer.
func New(provider *ingest.Provider, store Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{
		provider:   provider,
		store:      store,
		log:        log,
		dryRun:     dryRun,
		decompress: readHAE,
	}
}

// Import processes every recognised file under dir.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	for _, source := range models.Sources {
		sourceDir := filepath.Join(dir, source)
		if _, err := os.Stat(sourceDir); err != nil {
			continue
		}
		if err := imp.importSourceDir(ctx, sourceDir, source); err != nil {
			return &imp.stats, fmt.Errorf("importing %s: %w", source, err)
		}
	}

	haeDir := filepath.Join(dir, "HealthMetrics", models.MetricHeartRate)
	if _, err := os.Stat(haeDir); err == nil {
		if err := imp.importHAEDir(ctx, haeDir); err != nil {
			return &imp.stats, fmt.Errorf("importing AutoSync heart rate: %w", err)
		}
	}

	return &imp.stats, nil
}

func (imp *Importer) importSourceDir(ctx context.Context, dir, source string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := os.ReadFile(f)
		if err != nil {
			imp.log.Warn("read failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}

		if imp.dryRun {
			conv, err := imp.provider.Convert(source, body)
			if err != nil {
				imp.log.Warn("parse failed", "file", f, "error", err)
				imp.stats.FilesErrored++
				continue
			}
			if len(conv.Rows) == 0 {
				imp.stats.FilesSkipped++
				continue
			}
			imp.stats.add(source, int64(len(conv.Rows)), 0, conv.Rejected)
			continue
		}

		res, err := imp.provider.Ingest(ctx, source, "import", body)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			imp.log.Warn("ingest failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		if res.SamplesReceived == 0 {
			imp.stats.FilesSkipped++
			continue
		}
		imp.stats.add(source, res.SamplesInserted, res.SamplesSkipped, res.SamplesRejected)
	}
	return nil
}

func (imp *Importer) importHAEDir(ctx context.Context, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.hae"))
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := imp.decompress(ctx, f)
		if err != nil {
			imp.log.Warn("decompress failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}

		conv, err := ingest.ConvertHAEFile(data)
		if err != nil {
			imp.log.Warn("parse failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		if len(conv.Rows) == 0 {
			imp.stats.FilesSkipped++
			continue
		}

		if imp.dryRun {
			imp.stats.add(models.SourceAppleHealth, int64(len(conv.Rows)), 0, conv.Rejected)
			continue
		}

		inserted, err := imp.store.InsertHeartRate(ctx, conv.Rows)
		if err != nil {
			return fmt.Errorf("inserting heart rate from %s: %w", filepath.Base(f), err)
		}
		imp.stats.add(models.SourceAppleHealth, inserted, int64(len(conv.Rows))-inserted, conv.Rejected)
	}
	return nil
}
