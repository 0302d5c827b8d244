package eventbus

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEventID(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	id := NewEventID("emit_", at)
	assert.True(t, strings.HasPrefix(id, "emit_20260830_"))

	other := NewEventID("emit_", at)
	assert.NotEqual(t, id, other)
}

func TestMinimalValidate(t *testing.T) {
	evt := EmissionEvent{
		EventID:   "e1",
		Source:    "emitter",
		Type:      TypeRowResult,
		Timestamp: time.Now(),
	}
	assert.True(t, evt.MinimalValidate())

	evt.Type = ""
	assert.False(t, evt.MinimalValidate())

	evt = EmissionEvent{}
	assert.False(t, evt.MinimalValidate())
}
