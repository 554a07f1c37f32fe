// Package qr generates QR code images for link destinations and stores
// them behind an ImageStore so the hosting backend can be swapped out.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// imageSize is the side length in pixels of generated QR PNGs.
const imageSize = 256

// GeneratePNG renders a QR code PNG for the given destination URL.
func GeneratePNG(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, imageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate qr code: %w", err)
	}
	return png, nil
}
