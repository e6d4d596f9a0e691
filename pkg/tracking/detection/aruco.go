package detection

import (
	"fmt"
	"image"
	"sync"

	"github.com/teslashibe/go-artable/pkg/geom"
	"gocv.io/x/gocv"
)

// ArucoDetector uses OpenCV's ArUco module for marker detection
type ArucoDetector struct {
	detector gocv.ArucoDetector
	code     gocv.ArucoDictionaryCode
	gray     gocv.Mat
	mu       sync.Mutex // Protects detector and the gray buffer
}

// NewAruco creates a detector for the configured dictionary
func NewAruco(cfg Config) (*ArucoDetector, error) {
	code, err := Dictionary(cfg.Dictionary)
	if err != nil {
		return nil, err
	}

	dict := gocv.GetPredefinedDictionary(code)
	params := gocv.NewArucoDetectorParameters()

	return &ArucoDetector{
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		code:     code,
		gray:     gocv.NewMat(),
	}, nil
}

// Detect converts the frame to grayscale and returns every marker found
func (d *ArucoDetector) Detect(frame gocv.Mat) ([]Marker, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	input := frame
	if frame.Channels() > 1 {
		gocv.CvtColor(frame, &d.gray, gocv.ColorBGRToGray)
		input = d.gray
	}

	corners, ids, _ := d.detector.DetectMarkers(input)
	return toMarkers(corners, ids), nil
}

func toMarkers(corners [][]gocv.Point2f, ids []int) []Marker {
	markers := make([]Marker, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) < 4 {
			continue
		}
		m := Marker{ID: id}
		for c := 0; c < 4; c++ {
			m.Corners[c] = geom.Pt(float64(corners[i][c].X), float64(corners[i][c].Y))
		}
		markers = append(markers, m)
	}
	return markers
}

// Draw outlines the markers on img, for calibration preview windows
func Draw(img *gocv.Mat, markers []Marker) {
	if len(markers) == 0 {
		return
	}
	corners := make([][]gocv.Point2f, len(markers))
	ids := make([]int, len(markers))
	for i, m := range markers {
		ids[i] = m.ID
		corners[i] = make([]gocv.Point2f, 4)
		for c, p := range m.Corners {
			corners[i][c] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
		}
	}
	gocv.ArucoDrawDetectedMarkers(*img, corners, ids, gocv.NewScalar(0, 0, 255, 0))
}

// Render returns a side x side bitmap of marker id from the detector's
// dictionary
func (d *ArucoDetector) Render(id, side int) (image.Image, error) {
	return RenderMarker(d.code, id, side)
}

// RenderMarker draws marker id of the given dictionary as a grayscale image
func RenderMarker(code gocv.ArucoDictionaryCode, id, side int) (image.Image, error) {
	if side <= 0 {
		return nil, fmt.Errorf("detection: marker side must be positive, got %d", side)
	}
	mat := gocv.NewMatWithSize(side, side, gocv.MatTypeCV8UC1)
	defer mat.Close()

	gocv.ArucoGenerateImageMarker(code, id, side, mat, 1)
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("detection: render marker %d: %w", id, err)
	}
	return img, nil
}

// Close releases the detector resources
func (d *ArucoDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return d.gray.Close()
}

