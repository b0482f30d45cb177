// Package ensemble combines the per-algorithm classifiers into a single
// verdict and measures them against labelled datasets.
package ensemble

import (
	"context"
	"fmt"
	"sync"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/classifier"
	"artifact-detector/internal/confusion"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/opencv/safe"
	"artifact-detector/internal/pipeline"
)

const component = "Ensemble"

// Vote is one algorithm's contribution to a decision.
type Vote struct {
	Algorithm algorithms.ID
	Scores    classifier.Scores
	// Label is this algorithm's own verdict and Confidence its higher score.
	// Neither feeds into the ensemble verdict.
	Label      string
	Confidence float64
}

// Decision is the averaged outcome over every algorithm.
type Decision struct {
	Fake    float64
	Real    float64
	Verdict string
	Votes   []Vote
}

// Combine averages the votes' scores. Strictly higher fake wins, strictly
// higher real wins, and anything else, including no votes, is
// indeterminate.
func Combine(votes []Vote) Decision {
	d := Decision{Votes: votes}
	for _, v := range votes {
		d.Fake += v.Scores.Fake
		d.Real += v.Scores.Real
	}
	if n := len(votes); n > 0 {
		d.Fake /= float64(n)
		d.Real /= float64(n)
	}
	d.Verdict = classifier.Scores{Fake: d.Fake, Real: d.Real}.Verdict()
	return d
}

func newVote(id algorithms.ID, s classifier.Scores) Vote {
	return Vote{
		Algorithm:  id,
		Scores:     s,
		Label:      s.Verdict(),
		Confidence: s.Max(),
	}
}

type cacheKey struct {
	folder    string
	algorithm algorithms.ID
}

type Evaluator struct {
	algorithms  []algorithms.ID
	classifiers map[algorithms.ID]classifier.Classifier
	factory     pipeline.Factory
	logger      logger.Logger
	haltOnError bool

	mu    sync.Mutex
	cache map[cacheKey]*confusion.Matrix
}

type Option func(*Evaluator)

func WithFactory(f pipeline.Factory) Option {
	return func(e *Evaluator) {
		if f != nil {
			e.factory = f
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAlgorithms restricts the ensemble to ids, in the given order.
func WithAlgorithms(ids ...algorithms.ID) Option {
	return func(e *Evaluator) {
		if len(ids) > 0 {
			e.algorithms = append([]algorithms.ID(nil), ids...)
		}
	}
}

// WithHaltOnError makes dataset evaluation fail on the first unreadable
// image instead of skipping it.
func WithHaltOnError(halt bool) Option {
	return func(e *Evaluator) {
		e.haltOnError = halt
	}
}

// New builds an evaluator. Every algorithm in the ensemble needs a
// classifier.
func New(classifiers map[algorithms.ID]classifier.Classifier, opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		algorithms:  algorithms.All(),
		classifiers: make(map[algorithms.ID]classifier.Classifier, len(classifiers)),
		factory:     pipeline.FactoryFunc(algorithms.New),
		logger:      logger.Nop(),
		cache:       make(map[cacheKey]*confusion.Matrix),
	}
	for id, c := range classifiers {
		e.classifiers[id] = c
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, id := range e.algorithms {
		if e.classifiers[id] == nil {
			return nil, fmt.Errorf("no classifier for algorithm %s: %w", id, errs.ErrInvalidArgument)
		}
	}
	return e, nil
}

func (e *Evaluator) Algorithms() []algorithms.ID {
	return append([]algorithms.ID(nil), e.algorithms...)
}

// Decide runs every algorithm over the image at path, scores each artifact
// map with its classifier and combines the results.
func (e *Evaluator) Decide(ctx context.Context, path string) (*Decision, error) {
	src, err := imageio.Load(path, imageio.Color)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	votes := make([]Vote, 0, len(e.algorithms))
	for _, id := range e.algorithms {
		scores, err := e.score(ctx, src, path, id)
		if err != nil {
			return nil, err
		}
		votes = append(votes, newVote(id, scores))
	}

	d := Combine(votes)
	e.logger.Info(component, "decision", map[string]interface{}{
		"path":    path,
		"fake":    d.Fake,
		"real":    d.Real,
		"verdict": d.Verdict,
	})
	return &d, nil
}

func (e *Evaluator) score(ctx context.Context, src *safe.Mat, path string, id algorithms.ID) (classifier.Scores, error) {
	alg, err := e.factory.Create(id)
	if err != nil {
		return classifier.Scores{}, err
	}
	defer alg.Close()

	if err := alg.SetSource(src, path); err != nil {
		return classifier.Scores{}, err
	}
	if err := alg.Analyze(); err != nil {
		return classifier.Scores{}, err
	}
	derived, err := alg.Result()
	if err != nil {
		return classifier.Scores{}, err
	}
	defer derived.Close()

	scores, err := predict(ctx, e.classifiers[id], derived)
	if err != nil {
		return classifier.Scores{}, fmt.Errorf("%s classifier on %s: %w", id, path, err)
	}
	return scores, nil
}

// predict fits img to clf's input geometry before scoring it.
func predict(ctx context.Context, clf classifier.Classifier, img *safe.Mat) (classifier.Scores, error) {
	prepared, err := classifier.Prepare(img, clf.InputShape())
	if err != nil {
		return classifier.Scores{}, err
	}
	defer prepared.Close()
	return clf.Predict(ctx, prepared)
}
