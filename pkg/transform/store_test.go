package transform

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-artable/pkg/geom"
)

func fit(t *testing.T, src, dst [4]geom.Point) geom.Homography {
	t.Helper()
	h, err := geom.ComputePerspectiveTransform(src, dst)
	require.NoError(t, err)
	return h
}

func calibrated(t *testing.T, scale float64) Transforms {
	t.Helper()
	table := [4]geom.Point{{X: 0, Y: 0}, {X: 1000, Y: 0}, {X: 0, Y: 600}, {X: 1000, Y: 600}}
	camera := [4]geom.Point{{X: 100 * scale, Y: 80}, {X: 1800, Y: 95 * scale}, {X: 90, Y: 1000}, {X: 1820 * scale, Y: 1010}}
	proj := [4]geom.Point{{X: 10, Y: 10}, {X: 1910, Y: 12}, {X: 8, Y: 1070}, {X: 1912, Y: 1068}}
	return Transforms{
		TableToCamera:     fit(t, table, camera),
		CameraToTable:     fit(t, camera, table),
		CameraToProjector: fit(t, camera, proj),
		ProjectorToCamera: fit(t, proj, camera),
		HasProjector:      true,
	}
}

func TestStore_NotCalibrated(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Calibrated())

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotCalibrated)

	_, err = s.CameraToTable(geom.Pt(1, 1))
	assert.ErrorIs(t, err, ErrNotCalibrated)
}

func TestStore_DerivedTransforms(t *testing.T) {
	s := NewStore()
	s.Set(calibrated(t, 1))
	require.True(t, s.Calibrated())

	p := geom.Pt(250, 420)
	proj, err := s.TableToProjector(p)
	require.NoError(t, err)
	back, err := s.ProjectorToTable(proj)
	require.NoError(t, err)
	assert.True(t, back.Near(p, 1e-6), "got %+v", back)

	cam, err := s.TableToCamera(p)
	require.NoError(t, err)
	tbl, err := s.CameraToTable(cam)
	require.NoError(t, err)
	assert.True(t, tbl.Near(p, 1e-6))
}

func TestStore_TableOnly(t *testing.T) {
	tr := calibrated(t, 1)
	tr.HasProjector = false
	s := NewStore()
	s.Set(tr)

	_, err := s.TableToProjector(geom.Pt(1, 1))
	assert.ErrorIs(t, err, ErrNoProjector)
	_, err = s.ProjectorToTable(geom.Pt(1, 1))
	assert.ErrorIs(t, err, ErrNoProjector)

	_, err = s.CameraToTable(geom.Pt(1, 1))
	assert.NoError(t, err)
}

// Readers racing a recalibration must see either the old or the new set,
// never a mix.
func TestStore_SetIsAtomic(t *testing.T) {
	a := calibrated(t, 1)
	b := calibrated(t, 1.05)
	s := NewStore()
	s.Set(a)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				s.Set(b)
			} else {
				s.Set(a)
			}
		}
		close(stop)
	}()

	for done := false; !done; {
		select {
		case <-stop:
			done = true
		default:
		}
		got, err := s.Load()
		require.NoError(t, err)
		if got.TableToCamera == a.TableToCamera {
			assert.Equal(t, a, got)
		} else {
			assert.Equal(t, b, got)
		}
	}
	wg.Wait()
}
