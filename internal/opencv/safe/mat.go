package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/opencv/memory"
)

// Mat is an owned gocv.Mat. Close is idempotent and a finalizer releases
// the native buffer if the owner forgets to.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	size    int64
}

// Wrap takes ownership of m. The caller must not close m afterwards.
func Wrap(m gocv.Mat) (*Mat, error) {
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("source Mat is empty: %w", errs.ErrInvalidInput)
	}

	safeMat := &Mat{
		mat:     m,
		isValid: 1,
		size:    memory.Default().Track(m.Rows(), m.Cols(), m.Type()),
	}
	runtime.SetFinalizer(safeMat, (*Mat).finalize)
	return safeMat, nil
}

// NewMatFromMat deep-copies srcMat; srcMat stays owned by the caller.
func NewMatFromMat(srcMat gocv.Mat) (*Mat, error) {
	if srcMat.Empty() {
		return nil, fmt.Errorf("source Mat is empty: %w", errs.ErrInvalidInput)
	}
	return Wrap(srcMat.Clone())
}

// NewMatFromBytes builds an owned Mat from a packed, row-major pixel buffer.
func NewMatFromBytes(rows, cols int, matType gocv.MatType, data []byte) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, "NewMatFromBytes"); err != nil {
		return nil, err
	}
	m, err := gocv.NewMatFromBytes(rows, cols, matType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat %dx%d: %w", cols, rows, err)
	}
	// NewMatFromBytes aliases data; clone so the Mat owns its pixels.
	defer m.Close()
	return NewMatFromMat(m)
}

func (sm *Mat) IsValid() bool {
	return sm != nil && atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	if !sm.IsValid() {
		return true
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	if !sm.IsValid() {
		return 0
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	if !sm.IsValid() {
		return 0
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	if !sm.IsValid() {
		return 0
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat.Type()
}

func (sm *Mat) Clone() (*Mat, error) {
	if !sm.IsValid() {
		return nil, fmt.Errorf("cannot clone invalid Mat: %w", errs.ErrInvalidInput)
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return NewMatFromMat(sm.mat)
}

// Bytes returns a copy of the packed pixel data.
func (sm *Mat) Bytes() []byte {
	if !sm.IsValid() {
		return nil
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat.ToBytes()
}

// GetMat exposes the underlying gocv.Mat for read-only OpenCV calls.
// It stays owned by sm.
func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat
}

func (sm *Mat) Close() {
	if sm == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		sm.mat.Close()
		memory.Default().Release(sm.size)
		runtime.SetFinalizer(sm, nil)
	}
}

func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		sm.Close()
	}
}
