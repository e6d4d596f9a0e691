package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for applying to the device)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates cfg, stores it and applies it through OnConfigChange.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera: validation failed: %v", errs)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("camera: apply config: %w", err)
		}
	}

	return nil
}

// UpdateConfig updates specific fields of the configuration.
// A "preset" key is applied first; other keys override it.
// The device index cannot be changed at runtime.
func (m *Manager) UpdateConfig(params map[string]any) error {
	cfg := m.GetConfig()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("camera: unknown preset: %s", presetName)
		}
		index := cfg.Index
		cfg = *preset
		cfg.Index = index
	}

	for key, value := range params {
		switch key {
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "exposure":
			if v, ok := toFloat(value); ok {
				cfg.Exposure = v
			}
		case "brightness":
			if v, ok := toFloat(value); ok {
				cfg.Brightness = v
			}
		case "gain":
			if v, ok := toFloat(value); ok {
				cfg.Gain = v
			}
		case "autofocus":
			if v, ok := value.(bool); ok {
				cfg.Autofocus = v
			}
		case "focus":
			if v, ok := toFloat(value); ok {
				cfg.Focus = v
			}
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]any {
	data, _ := json.Marshal(m.GetConfig())
	var result map[string]any
	_ = json.Unmarshal(data, &result)
	return result
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
