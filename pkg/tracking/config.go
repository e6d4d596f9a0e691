package tracking

import (
	"time"

	"github.com/teslashibe/go-artable/pkg/geom"
)

// AreaConfig holds the tunable parameters of one area listener
type AreaConfig struct {
	Area          geom.Rect     // Watched region in table coordinates, bounds inclusive
	IDs           []int         // Marker ids of interest
	Delta         float64       // Minimum movement (table units) before OnMove fires
	TimeThreshold time.Duration // How long a marker may go unseen before OnLeave fires
}

// DefaultAreaConfig returns the stock thresholds for area
func DefaultAreaConfig(area geom.Rect, ids ...int) AreaConfig {
	return AreaConfig{
		Area:          area,
		IDs:           ids,
		Delta:         5,           // 5mm ignores detector jitter
		TimeThreshold: time.Second, // bridges short detection dropouts
	}
}

// SlowConfig returns thresholds for coarse controls such as
// placing a token on a printed field
func SlowConfig(area geom.Rect, ids ...int) AreaConfig {
	cfg := DefaultAreaConfig(area, ids...)
	cfg.Delta = 10
	cfg.TimeThreshold = 2 * time.Second
	return cfg
}

// PointerConfig returns thresholds for markers used as pointers,
// where every millimeter of movement matters
func PointerConfig(area geom.Rect, ids ...int) AreaConfig {
	cfg := DefaultAreaConfig(area, ids...)
	cfg.Delta = 1
	cfg.TimeThreshold = 500 * time.Millisecond
	return cfg
}
