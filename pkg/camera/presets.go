package camera

import "sort"

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetLegacy   = "legacy"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	PresetLowLight = "lowlight"
	PresetFast     = "fast"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetLegacy:   LegacyConfig(),
		Preset720p:     HD720Config(),
		Preset1080p:    HD1080Config(),
		PresetLowLight: LowLightConfig(),
		PresetFast:     FastConfig(),
	}
}

// PresetNames returns the sorted list of available preset names.
func PresetNames() []string {
	presets := Presets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LegacyConfig returns a 640x480 configuration for cameras that cannot
// keep up at higher resolutions.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	return DefaultConfig()
}

// HD1080Config returns 1080p configuration.
// Small markers at the far edge of a large table need the extra pixels.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// LowLightConfig returns a configuration for dim rooms where the
// projector is the main light source.
func LowLightConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15
	cfg.Gain = 4
	cfg.Brightness = 0.6
	return cfg
}

// FastConfig trades resolution for latency when markers are used as pointers.
func FastConfig() Config {
	cfg := LegacyConfig()
	cfg.Framerate = 60
	return cfg
}
