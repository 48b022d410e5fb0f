package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/pulseboard/internal/ingest"
	"github.com/claude/pulseboard/internal/models"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SamplesSent     int
	SamplesInserted int64
	SamplesRejected int
}

// Sender delivers one payload to the server.
type Sender interface {
	Send(ctx context.Context, source string, body []byte) (*ingest.Result, error)
}

// Converter validates a payload locally. Used in dry-run mode.
type Converter interface {
	Convert(source string, body []byte) (ingest.Conversion, error)
}

// Uploader walks an export directory laid out as <dir>/<source>/*.json and
// POSTs each file to the pulseboard server.
type Uploader struct {
	sender    Sender
	converter Converter
	state     *StateDB
	dir       string
	dryRun    bool
	log       *slog.Logger
	stats     Stats
}

// New creates a new Uploader. sender may be nil in dry-run mode.
func New(sender Sender, converter Converter, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		sender:    sender,
		converter: converter,
		state:     state,
		dir:       dir,
		dryRun:    dryRun,
		log:       log,
	}
}

// Run uploads every new or changed file. A rejected payload is counted and
// skipped; a context error aborts the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	for _, source := range models.Sources {
		files, err := filepath.Glob(filepath.Join(u.dir, source, "*.json"))
		if err != nil {
			return &u.stats, err
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return &u.stats, err
			}
			u.uploadFile(ctx, source, f)
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, source, path string) {
	u.stats.FilesTotal++

	relPath, _ := filepath.Rel(u.dir, path)
	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}

	uploaded, err := u.state.IsUploaded(ctx, relPath, hash)
	if err != nil {
		u.log.Warn("state check failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}
	if uploaded {
		u.stats.FilesSkipped++
		return
	}

	body, err := os.ReadFile(path)
	if err != nil {
		u.log.Warn("read failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}

	if u.dryRun {
		conv, err := u.converter.Convert(source, body)
		if err != nil {
			u.log.Warn("dry-run: payload invalid", "file", relPath, "error", err)
			u.stats.FilesErrored++
			return
		}
		u.log.Info("dry-run: would send", "file", relPath, "source", source, "samples", len(conv.Rows))
		u.stats.SamplesSent += len(conv.Rows)
		u.stats.SamplesRejected += conv.Rejected
		u.stats.FilesUploaded++
		return
	}

	result, err := u.sender.Send(ctx, source, body)
	if err != nil {
		u.log.Warn("upload failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return
	}

	u.stats.FilesUploaded++
	u.stats.SamplesSent += result.SamplesReceived
	u.stats.SamplesInserted += result.SamplesInserted
	u.stats.SamplesRejected += result.SamplesRejected

	if err := u.state.MarkUploaded(ctx, relPath, source, hash, result.SyncID.String()); err != nil {
		u.log.Warn("failed to mark uploaded", "file", relPath, "error", err)
	}
	u.log.Info("uploaded file", "file", relPath, "inserted", result.SamplesInserted, "sync_id", result.SyncID)
}

// String renders the summary printed by the upload command.
func (s *Stats) String() string {
	return fmt.Sprintf("files: %d total, %d uploaded, %d skipped, %d errored; samples: %d sent, %d inserted, %d rejected",
		s.FilesTotal, s.FilesUploaded, s.FilesSkipped, s.FilesErrored,
		s.SamplesSent, s.SamplesInserted, s.SamplesRejected)
}
