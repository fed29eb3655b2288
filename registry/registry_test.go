package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encOK(v any) ([]byte, error)        { return nil, nil }
func decOK(data []byte) (any, error)     { return nil, nil }

func TestRegisterIsIdempotent(t *testing.T) {
	defer reset()

	d1 := &Descriptor{ID: 42, Name: "send_message", RequiresResponse: true, EncodeInput: encOK, DecodeInput: decOK, EncodeOutput: encOK, DecodeOutput: decOK}
	got1, err := Register(d1)
	require.NoError(t, err)
	assert.Same(t, d1, got1)

	d2 := &Descriptor{ID: 42, Name: "send_message", RequiresResponse: true, EncodeInput: encOK, DecodeInput: decOK, EncodeOutput: encOK, DecodeOutput: decOK}
	got2, err := Register(d2)
	require.NoError(t, err)
	assert.Same(t, d1, got2, "identical re-registration must return the original descriptor")
}

func TestRegisterRejectsConflict(t *testing.T) {
	defer reset()

	d1 := &Descriptor{ID: 45, Name: "shutdown", RequiresResponse: false}
	_, err := Register(d1)
	require.NoError(t, err)

	d2 := &Descriptor{ID: 45, Name: "shutdown", RequiresResponse: true}
	_, err = Register(d2)
	assert.Error(t, err)
}

func TestLookupAndAll(t *testing.T) {
	defer reset()

	d := &Descriptor{ID: 44, Name: "send_buffer", RequiresResponse: true}
	_, err := Register(d)
	require.NoError(t, err)

	got, ok := Lookup(44)
	require.True(t, ok)
	assert.Equal(t, "send_buffer", got.Name)

	_, ok = Lookup(99)
	assert.False(t, ok)

	assert.Len(t, All(), 1)
}

func TestDescriptorHandlerSlot(t *testing.T) {
	d := &Descriptor{ID: 1, Name: "t"}
	_, ok := d.UserHandler()
	assert.False(t, ok)

	called := false
	d.SetHandler(func(req any) { called = true })
	h, ok := d.UserHandler()
	require.True(t, ok)
	h(nil)
	assert.True(t, called)
}
