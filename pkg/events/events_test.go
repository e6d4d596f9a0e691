package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-artable/pkg/geom"
)

func TestNew(t *testing.T) {
	a := New(Enter, "map", 5, "solar", geom.Pt(1, 2))
	b := New(Enter, "map", 5, "solar", geom.Pt(1, 2))

	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Time.IsZero())
	assert.Nil(t, a.From)
}

func TestLine(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Kind: Enter, Label: "wind", Position: geom.Pt(120, 45.5)}, "MARKER:enter:wind:120:45.5"},
		{Event{Kind: Move, Label: "solar", Position: geom.Pt(-3.25, 0)}, "MARKER:move:solar:-3.25:0"},
		{Event{Kind: Leave, Label: "", Position: geom.Pt(1, 1)}, "MARKER:leave::1:1"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.event.Line())
		})
	}
}

func TestFanout(t *testing.T) {
	var got []string
	sink := Fanout{
		SinkFunc(func(e Event) { got = append(got, "a:"+e.Label) }),
		SinkFunc(func(e Event) { got = append(got, "b:"+e.Label) }),
	}
	sink.Publish(Event{Label: "x"})
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}
