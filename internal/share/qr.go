// Package share renders shareable artifacts for calendar links.
package share

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the QR image edge in pixels.
const DefaultSize = 256

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("share: empty QR content")

// QRCode encodes content as a PNG QR code. size <= 0 uses DefaultSize.
func QRCode(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
