package algorithms

import (
	"fmt"
	"sync"

	"artifact-detector/internal/logger"
)

// Manager holds per-algorithm parameter overrides and hands out fresh
// instances configured with them. It is safe for concurrent use; the
// instances it returns are not.
type Manager struct {
	parameters map[ID]map[string]interface{}
	logger     logger.Logger
	mu         sync.RWMutex
}

func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}

	manager := &Manager{
		parameters: make(map[ID]map[string]interface{}),
		logger:     log,
	}
	manager.initializeDefaultParameters()
	return manager
}

func (m *Manager) initializeDefaultParameters() {
	for _, id := range All() {
		alg, err := New(id)
		if err != nil {
			continue
		}
		m.parameters[id] = alg.GetDefaultParameters()
		alg.Close()
	}
}

// SetParameter validates and records one override for id.
func (m *Manager) SetParameter(id ID, name string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	params, exists := m.parameters[id]
	if !exists {
		_, err := ParseID(string(id))
		return err
	}

	candidate := copyParams(params)
	candidate[name] = value

	alg, err := New(id)
	if err != nil {
		return err
	}
	defer alg.Close()
	if err := alg.ValidateParameters(candidate); err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	m.parameters[id] = candidate
	m.logger.Debug("algorithms", "parameter updated", map[string]interface{}{
		"algorithm": string(id),
		"name":      name,
		"value":     value,
	})
	return nil
}

func (m *Manager) GetParameters(id ID) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if params, exists := m.parameters[id]; exists {
		return copyParams(params)
	}
	return make(map[string]interface{})
}

// Create returns a new instance of id carrying the current overrides.
func (m *Manager) Create(id ID) (Algorithm, error) {
	alg, err := NewWithLogger(id, m.logger)
	if err != nil {
		return nil, err
	}

	if err := alg.SetParameters(m.GetParameters(id)); err != nil {
		alg.Close()
		return nil, err
	}
	return alg, nil
}

func copyParams(params map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(params))
	for k, v := range params {
		result[k] = v
	}
	return result
}
