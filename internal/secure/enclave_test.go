package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	v := NewValue("hunter2")

	got, err := v.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	// Reveal works repeatedly until destruction.
	got, err = v.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestValueDestroy(t *testing.T) {
	v := NewValue("hunter2")
	v.Destroy()
	v.Destroy()

	_, err := v.Reveal()
	assert.Error(t, err)
}

func TestValueEmpty(t *testing.T) {
	v := NewValue("")
	got, err := v.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
