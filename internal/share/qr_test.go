package share

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodePNG(t *testing.T) {
	b, err := QRCode("https://calendar.google.com/calendar/render?action=TEMPLATE", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
}

func TestQRCodeEmpty(t *testing.T) {
	_, err := QRCode("", 128)
	assert.ErrorIs(t, err, ErrEmptyContent)
}
