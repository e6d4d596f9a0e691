package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-artable/pkg/geom"
)

const tableJSON = `{
  "camera": {"index": 1, "width": 1920, "height": 1080},
  "table": {
    "width": 1170, "height": 710,
    "marker": {"marker": [0, 1, 2, 3], "position": [[20, 20], [20, 20], [20, 20], [20, 20]], "size": 60}
  },
  "projector": {
    "width": 1920, "height": 1080, "screen": 1,
    "marker": {"marker": [4, 5, 6, 7], "position": [[50, 50], [50, 50], [50, 50], [50, 50]], "size": 120}
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, "table.json", tableJSON))
	require.NoError(t, err)

	assert.Equal(t, DefaultDictionary, cfg.Dictionary)
	assert.Equal(t, 1, cfg.Camera.Index)
	assert.True(t, cfg.HasProjector())
	assert.Equal(t, geom.Pt(1170, 710), cfg.TableSize())
	assert.Equal(t, geom.Pt(1920, 1080), cfg.ProjectorSize())
	assert.Equal(t, []int{4, 5, 6, 7}, cfg.Projector.Marker.IDs)
	assert.Equal(t, geom.Pt(20, 20), cfg.Table.Marker.Offsets()[3])
}

func TestLoad_TableOnly(t *testing.T) {
	content := `{
	  "camera": {"index": 0},
	  "table": {"width": 800, "height": 600,
	    "marker": {"marker": [10, 11, 12, 13], "position": [[0,0],[0,0],[0,0],[0,0]], "size": 40}},
	  "marker_dict": "DICT_6X6_250"
	}`
	cfg, err := Load(writeFile(t, "table.json", content))
	require.NoError(t, err)
	assert.False(t, cfg.HasProjector())
	assert.Equal(t, geom.Point{}, cfg.ProjectorSize())
	assert.Equal(t, "DICT_6X6_250", cfg.Dictionary)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "table.yaml", tableJSON},
		{"bad json", "table.json", `{"camera":`},
		{"three markers", "table.json", `{"table": {"width": 1, "height": 1,
			"marker": {"marker": [0, 1, 2], "position": [[0,0],[0,0],[0,0],[0,0]], "size": 1}}}`},
		{"repeated id", "table.json", `{"table": {"width": 1, "height": 1,
			"marker": {"marker": [0, 1, 1, 2], "position": [[0,0],[0,0],[0,0],[0,0]], "size": 1}}}`},
		{"zero size table", "table.json", `{"table": {"width": 0, "height": 1,
			"marker": {"marker": [0, 1, 2, 3], "position": [[0,0],[0,0],[0,0],[0,0]], "size": 1}}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.file, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Table{
		Camera:    Camera{Index: -1},
		Projector: &Projector{Width: 0, Height: 0},
	}
	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Problems), 5)
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Load(writeFile(t, "table.json", tableJSON))
	require.NoError(t, err)

	t.Setenv("ARTABLE_CAMERA", "3")
	t.Setenv("ARTABLE_MARKER_DICT", "DICT_5X5_100")
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, 3, cfg.Camera.Index)
	assert.Equal(t, "DICT_5X5_100", cfg.Dictionary)

	t.Setenv("ARTABLE_CAMERA", "front")
	assert.Error(t, cfg.ApplyEnv())
}

func TestPath(t *testing.T) {
	t.Setenv("ARTABLE_CONFIG", "")
	assert.Equal(t, "table.json", Path("table.json"))
	t.Setenv("ARTABLE_CONFIG", "/etc/artable/table.json")
	assert.Equal(t, "/etc/artable/table.json", Path("table.json"))
}

func TestLoadZones(t *testing.T) {
	content := `{"zones": [
	  {"name": "map", "area": [[800, 710], [0, 0]], "ids": [10, 11], "delta": 5, "time_threshold": 1.5,
	   "labels": {"10": "solar"}},
	  {"name": "year", "area": [[900, 0], [1100, 200]], "ids": [30], "preset": "pointer"}
	]}`
	z, err := LoadZones(writeFile(t, "zones.json", content))
	require.NoError(t, err)
	require.Len(t, z.Zones, 2)

	m, ok := z.Find("map")
	require.True(t, ok)
	assert.Equal(t, geom.R(geom.Pt(0, 0), geom.Pt(800, 710)), m.Rect())
	assert.Equal(t, 1500*time.Millisecond, m.Threshold())
	assert.Equal(t, "solar", m.Label(10))
	assert.Equal(t, "11", m.Label(11))

	y, ok := z.Find("year")
	require.True(t, ok)
	assert.Equal(t, PresetPointer, y.Preset)

	_, ok = z.Find("missing")
	assert.False(t, ok)
}

func TestLoadZones_Invalid(t *testing.T) {
	content := `{"zones": [{"name": "a", "ids": [1], "preset": "turbo"}, {"name": "a", "ids": [2], "delta": -1}]}`
	_, err := LoadZones(writeFile(t, "zones.json", content))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, verr.Error(), `unknown preset "turbo"`)
}
