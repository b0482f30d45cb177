package ensemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/classifier"
	"artifact-detector/internal/confusion"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
)

// IsDerived reports whether folder already holds one subdirectory per
// ensemble algorithm.
func (e *Evaluator) IsDerived(folder string) (bool, error) {
	for _, id := range e.algorithms {
		info, err := os.Stat(filepath.Join(folder, string(id)))
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("inspect %s: %v: %w", folder, err, errs.ErrIOFailure)
		}
		if !info.IsDir() {
			return false, nil
		}
	}
	return true, nil
}

// Matrix returns the confusion matrix of id's classifier over the derived
// dataset in folder. Results are cached until ClearCache; callers get their
// own copy.
func (e *Evaluator) Matrix(ctx context.Context, folder string, id algorithms.ID) (*confusion.Matrix, error) {
	key := cacheKey{folder: filepath.Clean(folder), algorithm: id}

	e.mu.Lock()
	cached, ok := e.cache[key]
	e.mu.Unlock()
	if ok {
		return cached.Clone(), nil
	}

	m, err := e.evaluate(ctx, key.folder, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = m
	e.mu.Unlock()
	return m.Clone(), nil
}

// TotalMatrix sums the per-algorithm matrices of folder. Each sample is
// therefore counted once per algorithm.
func (e *Evaluator) TotalMatrix(ctx context.Context, folder string) (*confusion.Matrix, error) {
	total, err := confusion.NewMatrix(classifier.Labels())
	if err != nil {
		return nil, err
	}
	for _, id := range e.algorithms {
		m, err := e.Matrix(ctx, folder, id)
		if err != nil {
			return nil, err
		}
		if total, err = confusion.Merge(total, m); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[cacheKey]*confusion.Matrix)
	e.mu.Unlock()
}

func (e *Evaluator) evaluate(ctx context.Context, folder string, id algorithms.ID) (*confusion.Matrix, error) {
	clf, ok := e.classifiers[id]
	if !ok {
		return nil, fmt.Errorf("no classifier for algorithm %s: %w", id, errs.ErrInvalidArgument)
	}

	root := filepath.Join(folder, string(id))
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s has no %s dataset: %w", folder, id, errs.ErrInvalidInput)
	}

	m, err := confusion.NewMatrix(classifier.Labels())
	if err != nil {
		return nil, err
	}

	var actual, predicted []int
	for li, label := range classifier.Labels() {
		files, err := listFiles(filepath.Join(root, label))
		if err != nil {
			return nil, err
		}

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			scores, err := e.predictFile(ctx, clf, path)
			if err != nil {
				if e.haltOnError || ctx.Err() != nil {
					return nil, err
				}
				e.logger.Warning(component, "skipping sample", map[string]interface{}{
					"path":      path,
					"algorithm": string(id),
					"error":     err.Error(),
				})
				continue
			}
			actual = append(actual, li)
			predicted = append(predicted, scores.ArgMax())
		}
	}

	if err := m.AddData(actual, predicted); err != nil {
		return nil, err
	}
	e.logger.Info(component, "dataset evaluated", map[string]interface{}{
		"folder":    folder,
		"algorithm": string(id),
		"samples":   m.Total(),
		"accuracy":  m.Accuracy(),
	})
	return m, nil
}

func (e *Evaluator) predictFile(ctx context.Context, clf classifier.Classifier, path string) (classifier.Scores, error) {
	img, err := imageio.Load(path, imageio.Unchanged)
	if err != nil {
		return classifier.Scores{}, err
	}
	defer img.Close()
	return predict(ctx, clf, img)
}

// listFiles returns the regular files directly inside dir in name order.
// A missing directory holds no samples.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %v: %w", dir, err, errs.ErrIOFailure)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
