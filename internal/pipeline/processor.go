// Package pipeline turns a tree of source images into per-algorithm
// derived datasets.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/opencv/memory"
	"artifact-detector/internal/opencv/safe"
	"artifact-detector/internal/timing"
)

const component = "Pipeline"

// Factory builds a fresh algorithm instance for every unit of work.
type Factory interface {
	Create(id algorithms.ID) (algorithms.Algorithm, error)
}

type FactoryFunc func(id algorithms.ID) (algorithms.Algorithm, error)

func (f FactoryFunc) Create(id algorithms.ID) (algorithms.Algorithm, error) {
	return f(id)
}

type Processor struct {
	workers    int
	algorithms []algorithms.ID
	factory    Factory
	logger     logger.Logger
	timing     *timing.Tracker
}

type Option func(*Processor)

func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAlgorithms restricts the run to ids, in the given order.
func WithAlgorithms(ids ...algorithms.ID) Option {
	return func(p *Processor) {
		if len(ids) > 0 {
			p.algorithms = append([]algorithms.ID(nil), ids...)
		}
	}
}

func WithFactory(f Factory) Option {
	return func(p *Processor) {
		if f != nil {
			p.factory = f
		}
	}
}

func WithTracker(t *timing.Tracker) Option {
	return func(p *Processor) {
		p.timing = t
	}
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		workers:    runtime.NumCPU(),
		algorithms: algorithms.All(),
		factory:    FactoryFunc(algorithms.New),
		logger:     logger.Nop(),
		timing:     timing.NewTracker(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) Algorithms() []algorithms.ID {
	return append([]algorithms.ID(nil), p.algorithms...)
}

func (p *Processor) Tracker() *timing.Tracker {
	return p.timing
}

// ProcessImages runs every configured algorithm over every file below
// sourceDir and writes results to destDir/<algorithm>/<relative path>.
// Outputs that already exist are left alone. Per-file failures are
// collected in the report and never stop sibling work; the returned error
// is reserved for an unusable source root or a cancelled context.
func (p *Processor) ProcessImages(ctx context.Context, sourceDir, destDir string) (*Report, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("source %s: %v: %w", sourceDir, err, errs.ErrInvalidInput)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory: %w", sourceDir, errs.ErrInvalidInput)
	}
	if destDir == "" {
		return nil, fmt.Errorf("empty destination: %w", errs.ErrInvalidArgument)
	}

	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("destination %s: %v: %w", destDir, err, errs.ErrIOFailure)
	}

	p.logger.Info(component, "batch started", map[string]interface{}{
		"source":  sourceDir,
		"dest":    destDir,
		"workers": p.workers,
	})

	report := &Report{}
	g := &errgroup.Group{}
	g.SetLimit(p.workers)

	walkErr := p.walk(ctx, g, report, sourceDir, destDir, destAbs, "")
	_ = g.Wait()

	report.Durations = p.timing.Snapshot()
	mem := memory.Default().Stats()
	p.logger.Info(component, "batch finished", map[string]interface{}{
		"written":     report.Written,
		"skipped":     report.Skipped,
		"failed":      report.Failed,
		"active_mats": mem.ActiveMats,
		"peak_bytes":  mem.PeakBytes,
	})
	for _, stat := range report.Durations {
		p.logger.Debug(component, "timing", map[string]interface{}{
			"operation": stat.Operation,
			"count":     stat.Count,
			"average":   stat.Average().String(),
		})
	}

	return report, walkErr
}

// walk schedules the files directly inside dir, then descends into its
// subdirectories. rel is dir's path relative to the source root.
func (p *Processor) walk(ctx context.Context, g *errgroup.Group, report *Report, dir, destDir, destAbs, rel string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		report.fail(dir, "", fmt.Errorf("list %s: %v: %w", dir, err, errs.ErrIOFailure))
		p.logger.Error(component, err, map[string]interface{}{"path": dir})
		return nil
	}

	var subdirs []os.DirEntry
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		src := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			p.processFile(report, src, destDir, rel, entry.Name())
			return nil
		})
	}

	for _, sub := range subdirs {
		path := filepath.Join(dir, sub.Name())
		if abs, err := filepath.Abs(path); err == nil && abs == destAbs {
			continue
		}
		if err := p.walk(ctx, g, report, path, destDir, destAbs, filepath.Join(rel, sub.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processFile(report *Report, src, destDir, rel, name string) {
	for _, id := range p.algorithms {
		dest := filepath.Join(destDir, string(id), rel, name)

		written, err := p.GenerateImageTo(src, dest, id)
		switch {
		case err != nil:
			report.fail(src, id, err)
		case written:
			report.written()
		default:
			report.skipped()
		}
	}
}

// GenerateImageTo derives id's artifact map of input and saves it at dest.
// It reports false without doing any work when dest already exists.
func (p *Processor) GenerateImageTo(input, dest string, id algorithms.ID) (bool, error) {
	exists, err := imageio.Exists(dest)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	span := p.timing.Start(string(id))
	defer span.Stop()

	alg, err := p.factory.Create(id)
	if err != nil {
		return false, err
	}
	defer alg.Close()

	if err := alg.Load(input); err != nil {
		p.logger.Error(component, err, map[string]interface{}{
			"path":      input,
			"algorithm": string(id),
		})
		return false, err
	}
	if err := alg.AnalyzeAndSave(dest); err != nil {
		return false, err
	}
	return true, nil
}

// GenerateImage returns id's artifact map of the image at path. The caller
// owns the result.
func (p *Processor) GenerateImage(path string, id algorithms.ID) (*safe.Mat, error) {
	alg, err := p.factory.Create(id)
	if err != nil {
		return nil, err
	}
	defer alg.Close()

	if err := alg.Load(path); err != nil {
		return nil, err
	}
	if err := alg.Analyze(); err != nil {
		return nil, err
	}
	return alg.Result()
}

// GenerateImages runs every configured algorithm over path and returns
// the results in the processor's algorithm order.
func (p *Processor) GenerateImages(path string) ([]*safe.Mat, error) {
	results := make([]*safe.Mat, 0, len(p.algorithms))
	for _, id := range p.algorithms {
		m, err := p.GenerateImage(path, id)
		if err != nil {
			for _, r := range results {
				r.Close()
			}
			return nil, err
		}
		results = append(results, m)
	}
	return results, nil
}
