package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/teslashibe/go-artable/pkg/geom"
)

// Threshold presets selectable per zone.
const (
	PresetDefault = "default"
	PresetSlow    = "slow"
	PresetPointer = "pointer"
)

// Zone is one watched table area. Labels name marker ids for notifications.
// Preset picks the base thresholds; Delta and TimeThreshold override it
// when positive.
type Zone struct {
	Name          string            `json:"name"`
	Area          [2][2]float64     `json:"area"`
	IDs           []int             `json:"ids"`
	Preset        string            `json:"preset,omitempty"`
	Delta         float64           `json:"delta"`
	TimeThreshold float64           `json:"time_threshold"`
	Labels        map[string]string `json:"labels,omitempty"`
}

// Rect returns the zone area as a rectangle in table coordinates.
func (z Zone) Rect() geom.Rect {
	return geom.R(geom.Pt(z.Area[0][0], z.Area[0][1]), geom.Pt(z.Area[1][0], z.Area[1][1]))
}

// Threshold returns the vanish timeout.
func (z Zone) Threshold() time.Duration {
	return time.Duration(z.TimeThreshold * float64(time.Second))
}

// Label returns the configured label for id, or the id itself.
func (z Zone) Label(id int) string {
	key := strconv.Itoa(id)
	if l, ok := z.Labels[key]; ok && l != "" {
		return l
	}
	return key
}

// Zones is the application zone file.
type Zones struct {
	Zones []Zone `json:"zones"`
}

// Find returns the zone with the given name.
func (z *Zones) Find(name string) (Zone, bool) {
	for _, zone := range z.Zones {
		if zone.Name == name {
			return zone, true
		}
	}
	return Zone{}, false
}

// Validate checks zone names and thresholds.
func (z *Zones) Validate() error {
	var problems []string
	seen := make(map[string]bool)
	for i, zone := range z.Zones {
		if zone.Name == "" {
			problems = append(problems, fmt.Sprintf("zone %d has no name", i))
		} else if seen[zone.Name] {
			problems = append(problems, fmt.Sprintf("zone %q is repeated", zone.Name))
		}
		seen[zone.Name] = true
		if zone.Delta < 0 {
			problems = append(problems, fmt.Sprintf("zone %q delta must not be negative", zone.Name))
		}
		switch zone.Preset {
		case "", PresetDefault, PresetSlow, PresetPointer:
		default:
			problems = append(problems, fmt.Sprintf("zone %q has unknown preset %q", zone.Name, zone.Preset))
		}
		if zone.TimeThreshold < 0 {
			problems = append(problems, fmt.Sprintf("zone %q time_threshold must not be negative", zone.Name))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// LoadZones reads and validates a zone file.
func LoadZones(path string) (*Zones, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}
	var z Zones
	if err := json.Unmarshal(data, &z); err != nil {
		return nil, fmt.Errorf("parse zones JSON: %w", err)
	}
	if err := z.Validate(); err != nil {
		return nil, err
	}
	return &z, nil
}
