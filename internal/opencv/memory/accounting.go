// Package memory accounts for native OpenCV buffers held by safe.Mat so
// long batches can report leaks and peak usage.
package memory

import (
	"sync"

	"gocv.io/x/gocv"
)

type Stats struct {
	Allocations int64
	Releases    int64
	ActiveMats  int64
	ActiveBytes int64
	PeakBytes   int64
}

type Manager struct {
	mu    sync.Mutex
	stats Stats
}

var global = &Manager{}

// Default is the process-wide manager safe.Mat reports to.
func Default() *Manager {
	return global
}

// Track records a new buffer of rows x cols elements of matType and
// returns its size in bytes.
func (m *Manager) Track(rows, cols int, matType gocv.MatType) int64 {
	size := int64(rows) * int64(cols) * int64(MatTypeSize(matType))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Allocations++
	m.stats.ActiveMats++
	m.stats.ActiveBytes += size
	if m.stats.ActiveBytes > m.stats.PeakBytes {
		m.stats.PeakBytes = m.stats.ActiveBytes
	}
	return size
}

// Release records that a tracked buffer of size bytes was freed.
func (m *Manager) Release(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Releases++
	m.stats.ActiveMats--
	m.stats.ActiveBytes -= size
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// MatTypeSize is the byte size of one element of matType.
func MatTypeSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV16UC1:
		return 2
	case gocv.MatTypeCV16UC3:
		return 6
	case gocv.MatTypeCV16UC4:
		return 8
	case gocv.MatTypeCV32FC1:
		return 4
	case gocv.MatTypeCV32FC3:
		return 12
	case gocv.MatTypeCV32FC4:
		return 16
	case gocv.MatTypeCV64FC1:
		return 8
	case gocv.MatTypeCV64FC3:
		return 24
	default:
		return 1
	}
}
