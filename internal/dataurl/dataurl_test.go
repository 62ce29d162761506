package dataurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	got := Encode("image/png", []byte("hi"))
	assert.Equal(t, "data:image/png;base64,aGk=", got)
}

func TestDecode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		mimeType, data, err := Decode(Encode("image/jpeg", []byte{0xff, 0xd8, 0xff}))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mimeType)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
	})

	tests := []struct {
		name string
		in   string
	}{
		{"missing scheme", "image/png;base64,aGk="},
		{"missing base64 marker", "data:image/png,aGk="},
		{"missing mime", "data:;base64,aGk="},
		{"bad payload", "data:image/png;base64,!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.in)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
