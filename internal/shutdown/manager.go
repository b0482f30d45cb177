// Package shutdown cancels in-flight work on SIGINT/SIGTERM and closes
// registered resources, newest first.
package shutdown

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"artifact-detector/internal/logger"
)

const component = "ShutdownManager"

type Manager struct {
	closers []io.Closer
	logger  logger.Logger
	timeout time.Duration
	mu      sync.Mutex
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stop    func()
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Manager{
		logger:  log,
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		stop:    func() {},
	}
}

func (m *Manager) Register(c io.Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closers = append(m.closers, c)
}

// Listen cancels the manager's context when the process is interrupted.
// Cleanup still happens in Shutdown, which the caller defers.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	m.stop = func() { signal.Stop(sigChan) }

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info(component, "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.cancel()
		case <-m.done:
		}
	}()
}

// Shutdown cancels the context and closes every registered resource once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}

	m.stop()
	m.cancel()

	for i := len(m.closers) - 1; i >= 0; i-- {
		c := m.closers[i]

		errc := make(chan error, 1)
		go func() {
			errc <- c.Close()
		}()

		select {
		case err := <-errc:
			if err != nil {
				m.logger.Error(component, err, map[string]interface{}{"index": i})
			}
		case <-time.After(m.timeout):
			m.logger.Warning(component, "close timed out", map[string]interface{}{"index": i})
		}
	}
	m.closers = nil

	m.logger.Debug(component, "shutdown sequence completed", nil)
}

func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
