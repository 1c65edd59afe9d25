package wayland

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskweb/dusk/backend"
)

func preferredScale(factor int32) []byte {
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], uint32(factor))
	return payload[:]
}

func TestPreferredScaleApplies(t *testing.T) {
	s := &surface{scale: 1, events: make(chan backend.Event, 4)}
	s.handleSurfaceEvents(2, preferredScale(2))

	assert.Equal(t, 2.0, s.Scale())
	require.Len(t, s.events, 1)
	assert.Equal(t, backend.RescaleEvent{Scale: 2}, <-s.events)
}

func TestForcedScalePinsOverPreferred(t *testing.T) {
	s := &surface{scale: 2, scaleForced: true, events: make(chan backend.Event, 4)}
	s.handleSurfaceEvents(2, preferredScale(3))

	assert.Equal(t, 2.0, s.Scale(), "forced scale must not follow the compositor")
	assert.Empty(t, s.events)
}
