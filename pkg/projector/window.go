package projector

import "gocv.io/x/gocv"

// Window is a fullscreen gocv window on one monitor
type Window struct {
	w *gocv.Window
}

// OpenWindow opens a fullscreen window named name. Monitors are assumed to
// be laid out left to right with the given width, so screen n starts at
// x = n*width.
func OpenWindow(name string, screen, width int) *Window {
	w := gocv.NewWindow(name)
	w.MoveWindow(screen*width, 0)
	w.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
	return &Window{w: w}
}

// Show displays frame and pumps the window event loop once
func (w *Window) Show(frame gocv.Mat) error {
	w.w.IMShow(frame)
	w.w.WaitKey(1)
	return nil
}

// Close closes the window
func (w *Window) Close() error {
	return w.w.Close()
}
