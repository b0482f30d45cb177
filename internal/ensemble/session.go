package ensemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/confusion"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/pipeline"
)

// Session owns a scratch directory holding datasets derived on demand
// from raw folders. Close removes it.
type Session struct {
	evaluator *Evaluator
	processor *pipeline.Processor
	scratch   string
	logger    logger.Logger

	mu       sync.Mutex
	resolved map[string]string
}

// NewSession creates a uniquely named scratch directory under root.
func NewSession(root string, e *Evaluator, p *pipeline.Processor, log logger.Logger) (*Session, error) {
	if root == "" {
		root = os.TempDir()
	}
	if log == nil {
		log = logger.Nop()
	}

	scratch := filepath.Join(root, "artifact-detector-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch %s: %v: %w", scratch, err, errs.ErrIOFailure)
	}

	return &Session{
		evaluator: e,
		processor: p,
		scratch:   scratch,
		logger:    log,
		resolved:  make(map[string]string),
	}, nil
}

func (s *Session) Scratch() string {
	return s.scratch
}

func (s *Session) Evaluator() *Evaluator {
	return s.evaluator
}

// Resolve returns folder itself when it is already a derived dataset.
// Otherwise folder is run through the batch pipeline into the scratch
// directory once, and that copy is used for the rest of the session.
func (s *Session) Resolve(ctx context.Context, folder string) (string, error) {
	folder = filepath.Clean(folder)

	s.mu.Lock()
	defer s.mu.Unlock()

	if derived, ok := s.resolved[folder]; ok {
		return derived, nil
	}

	isDerived, err := s.evaluator.IsDerived(folder)
	if err != nil {
		return "", err
	}
	if isDerived {
		s.resolved[folder] = folder
		return folder, nil
	}

	dest := filepath.Join(s.scratch, uuid.NewString())
	s.logger.Info(component, "deriving dataset", map[string]interface{}{
		"folder": folder,
		"dest":   dest,
	})
	report, err := s.processor.ProcessImages(ctx, folder, dest)
	if err != nil {
		return "", err
	}
	if report.Failed > 0 {
		s.logger.Warning(component, "dataset derived with failures", map[string]interface{}{
			"folder": folder,
			"failed": report.Failed,
		})
	}

	s.resolved[folder] = dest
	return dest, nil
}

func (s *Session) Matrix(ctx context.Context, folder string, id algorithms.ID) (*confusion.Matrix, error) {
	derived, err := s.Resolve(ctx, folder)
	if err != nil {
		return nil, err
	}
	return s.evaluator.Matrix(ctx, derived, id)
}

func (s *Session) TotalMatrix(ctx context.Context, folder string) (*confusion.Matrix, error) {
	derived, err := s.Resolve(ctx, folder)
	if err != nil {
		return nil, err
	}
	return s.evaluator.TotalMatrix(ctx, derived)
}

// Close deletes the scratch directory and everything derived into it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resolved = make(map[string]string)
	if err := os.RemoveAll(s.scratch); err != nil {
		return fmt.Errorf("remove scratch %s: %v: %w", s.scratch, err, errs.ErrIOFailure)
	}
	return nil
}
