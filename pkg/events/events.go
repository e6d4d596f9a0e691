// Package events defines the marker events published by the application
// to the dashboard and to external listeners.
package events

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-artable/pkg/geom"
)

// Kind names what happened
type Kind string

const (
	Enter Kind = "enter"
	Move  Kind = "move"
	Leave Kind = "leave"
)

// Event is one area event
type Event struct {
	ID       string      `json:"id"`
	Kind     Kind        `json:"kind"`
	Zone     string      `json:"zone"`
	Marker   int         `json:"marker"`
	Label    string      `json:"label"`
	Position geom.Point  `json:"position"`
	From     *geom.Point `json:"from,omitempty"`
	Image    *geom.Point `json:"image,omitempty"` // position in the displayed image, when known
	Time     time.Time   `json:"time"`
}

// New creates an event stamped with a fresh id and the current time
func New(kind Kind, zone string, marker int, label string, pos geom.Point) Event {
	return Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		Zone:     zone,
		Marker:   marker,
		Label:    label,
		Position: pos,
		Time:     time.Now(),
	}
}

// Line formats the event as MARKER:<kind>:<label>:<x>:<y>
func (e Event) Line() string {
	var b strings.Builder
	b.WriteString("MARKER:")
	b.WriteString(string(e.Kind))
	b.WriteByte(':')
	b.WriteString(e.Label)
	b.WriteByte(':')
	b.WriteString(strconv.FormatFloat(e.Position.X, 'f', -1, 64))
	b.WriteByte(':')
	b.WriteString(strconv.FormatFloat(e.Position.Y, 'f', -1, 64))
	return b.String()
}

// Sink receives published events. Publish must not block.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(e Event)

// Publish calls f
func (f SinkFunc) Publish(e Event) { f(e) }

// Fanout publishes to every sink in order
type Fanout []Sink

// Publish forwards e to every sink
func (f Fanout) Publish(e Event) {
	for _, s := range f {
		s.Publish(e)
	}
}
