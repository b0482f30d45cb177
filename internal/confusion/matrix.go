// Package confusion accumulates classifier predictions against ground
// truth and derives accuracy, precision and recall from the counts.
//
// A Matrix is single-writer: callers that update one matrix from several
// goroutines must synchronise externally.
package confusion

import (
	"fmt"

	"artifact-detector/internal/errs"
)

// Matrix counts predictions with rows as the actual class and columns as
// the predicted class.
type Matrix struct {
	labels []string
	counts [][]int
}

// NewMatrix returns an all-zero matrix over labels. Labels must be
// non-empty and unique.
func NewMatrix(labels []string) (*Matrix, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("confusion matrix needs at least one label: %w", errs.ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("duplicate label %q: %w", l, errs.ErrInvalidArgument)
		}
		seen[l] = struct{}{}
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	return &Matrix{
		labels: append([]string(nil), labels...),
		counts: counts,
	}, nil
}

func (m *Matrix) Size() int {
	if m == nil {
		return 0
	}
	return len(m.labels)
}

func (m *Matrix) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Counts returns a copy of the count grid.
func (m *Matrix) Counts() [][]int {
	out := make([][]int, len(m.counts))
	for i, row := range m.counts {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Clone returns an independent copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{
		labels: m.Labels(),
		counts: m.Counts(),
	}
}

func (m *Matrix) inRange(c int) bool {
	return c >= 0 && c < len(m.counts)
}

// Count returns the samples of class actual predicted as predicted, or 0
// when either index is not a label index.
func (m *Matrix) Count(actual, predicted int) int {
	if !m.inRange(actual) || !m.inRange(predicted) {
		return 0
	}
	return m.counts[actual][predicted]
}

// Total is the number of recorded samples.
func (m *Matrix) Total() int {
	total := 0
	for _, row := range m.counts {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// AddData records one sample per index pair. Both slices must have the
// same length and hold valid label indices; otherwise nothing is recorded.
func (m *Matrix) AddData(actual, predicted []int) error {
	if len(actual) != len(predicted) {
		return fmt.Errorf("actual has %d samples, predicted has %d: %w", len(actual), len(predicted), errs.ErrInvalidArgument)
	}
	n := len(m.labels)
	for i := range actual {
		if actual[i] < 0 || actual[i] >= n || predicted[i] < 0 || predicted[i] >= n {
			return fmt.Errorf("sample %d has label index (%d, %d) outside 0..%d: %w", i, actual[i], predicted[i], n-1, errs.ErrInvalidArgument)
		}
	}

	for i := range actual {
		m.counts[actual[i]][predicted[i]]++
	}
	return nil
}

// AddMatrix adds other's counts elementwise into m.
func (m *Matrix) AddMatrix(other *Matrix) error {
	if other == nil || len(other.counts) != len(m.counts) {
		return fmt.Errorf("cannot add %d-label matrix to %d-label matrix: %w", other.Size(), m.Size(), errs.ErrShapeMismatch)
	}
	for i, row := range other.counts {
		for j, v := range row {
			m.counts[i][j] += v
		}
	}
	return nil
}

// Merge returns a new matrix over a's labels holding a + b.
func Merge(a, b *Matrix) (*Matrix, error) {
	if a == nil || b == nil || a.Size() != b.Size() {
		return nil, fmt.Errorf("cannot merge %d-label and %d-label matrices: %w", a.Size(), b.Size(), errs.ErrShapeMismatch)
	}

	out, err := NewMatrix(a.labels)
	if err != nil {
		return nil, err
	}
	if err := out.AddMatrix(a); err != nil {
		return nil, err
	}
	if err := out.AddMatrix(b); err != nil {
		return nil, err
	}
	return out, nil
}

// Accuracy is the diagonal over the total, or 0 for an empty matrix.
func (m *Matrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	correct := 0
	for i := range m.counts {
		correct += m.counts[i][i]
	}
	return float64(correct) / float64(total)
}

// Precision of class c is 0 when nothing was predicted as c or c is not a
// label index.
func (m *Matrix) Precision(c int) float64 {
	if !m.inRange(c) {
		return 0
	}
	predicted := 0
	for r := range m.counts {
		predicted += m.counts[r][c]
	}
	if predicted == 0 {
		return 0
	}
	return float64(m.counts[c][c]) / float64(predicted)
}

// Recall of class c is 0 when no sample of c was recorded or c is not a
// label index.
func (m *Matrix) Recall(c int) float64 {
	if !m.inRange(c) {
		return 0
	}
	actual := 0
	for _, v := range m.counts[c] {
		actual += v
	}
	if actual == 0 {
		return 0
	}
	return float64(m.counts[c][c]) / float64(actual)
}
