package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

const (
	exportPrefix = "segments-"
	exportSuffix = ".csv.gz"
)

// SegmentDumper streams the public segment table as CSV.
type SegmentDumper interface {
	DumpSegments(ctx context.Context, w io.Writer) (int64, error)
}

// ExportService writes gzipped snapshots of the public segment table into a
// directory and serves the newest one. Snapshot names embed a UTC timestamp
// so lexical order is chronological.
type ExportService struct {
	dumper SegmentDumper
	dir    string
	keep   int
	now    func() time.Time
	logger zerolog.Logger
}

// NewExportService disables exports when dir is empty. keep is the number of
// snapshots retained, at least one.
func NewExportService(dumper SegmentDumper, dir string, keep int) *ExportService {
	return &ExportService{
		dumper: dumper,
		dir:    dir,
		keep:   max(keep, 1),
		now:    time.Now,
		logger: log.With().Str("component", "export").Logger(),
	}
}

func (s *ExportService) Enabled() bool {
	return s != nil && s.dir != ""
}

// Run writes a new snapshot and prunes old ones. The file only appears under
// its final name once complete.
func (s *ExportService) Run(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("export dir: %w", err)
	}

	name := exportPrefix + s.now().UTC().Format("20060102T150405Z") + exportSuffix
	final := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("export temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	rows, err := s.write(ctx, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("publish export: %w", err)
	}

	s.logger.Info().Str("file", name).Int64("rows", rows).Msg("export written")
	s.prune()
	return final, nil
}

func (s *ExportService) write(ctx context.Context, w io.Writer) (int64, error) {
	gz := gzip.NewWriter(w)
	rows, err := s.dumper.DumpSegments(ctx, gz)
	if err != nil {
		return 0, fmt.Errorf("dump segments: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("compress export: %w", err)
	}
	return rows, nil
}

// Latest returns the path of the newest snapshot, or ErrNotFound.
func (s *ExportService) Latest() (string, error) {
	files, err := s.snapshots()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", model.ErrNotFound
	}
	return filepath.Join(s.dir, files[len(files)-1]), nil
}

func (s *ExportService) snapshots() ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read export dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), exportPrefix) && strings.HasSuffix(e.Name(), exportSuffix) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

func (s *ExportService) prune() {
	files, err := s.snapshots()
	if err != nil || len(files) <= s.keep {
		return
	}
	for _, name := range files[:len(files)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("prune failed")
		}
	}
}

// Start exports once immediately, then on schedule until ctx is cancelled.
func (s *ExportService) Start(ctx context.Context, schedule string) error {
	if !s.Enabled() {
		return nil
	}
	run := func() {
		if _, err := s.Run(ctx); err != nil {
			s.logger.Error().Err(err).Msg("export failed")
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("export schedule %q: %w", schedule, err)
	}

	s.logger.Info().Str("schedule", schedule).Str("dir", s.dir).Msg("starting")
	run()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
