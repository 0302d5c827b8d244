package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketera/pos"
)

func TestPickEvent(t *testing.T) {
	events := []pos.Event{
		{ID: "1", Name: "Fiesta de Verano"},
		{ID: "2", Name: "Fiesta de Invierno"},
		{ID: "3", Name: "Recital"},
	}

	ev, err := pickEvent(events, "Recital")
	require.NoError(t, err)
	assert.Equal(t, "3", ev.ID)

	ev, err = pickEvent(events, "verano")
	require.NoError(t, err)
	assert.Equal(t, "1", ev.ID)

	_, err = pickEvent(events, "fiesta")
	assert.Error(t, err, "ambiguous match must not pick silently")

	_, err = pickEvent(events, "teatro")
	assert.Error(t, err)

	_, err = pickEvent(events, "")
	assert.Error(t, err, "multiple events need an explicit -event")

	ev, err = pickEvent(events[2:], "")
	require.NoError(t, err)
	assert.Equal(t, "3", ev.ID)

	_, err = pickEvent(nil, "Recital")
	assert.Error(t, err)
}

func TestParseVariant(t *testing.T) {
	v, err := parseVariant("nominada")
	require.NoError(t, err)
	assert.Equal(t, pos.NamedHolder, v)

	v, err = parseVariant("INNOMINADA")
	require.NoError(t, err)
	assert.Equal(t, pos.Anonymous, v)

	_, err = parseVariant("otra")
	assert.Error(t, err)
}
