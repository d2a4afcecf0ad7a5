package rlds

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/droid-datasets/rldsbuild/internal/video"
)

// jpegQuality balances dataset size against compression artifacts.
const jpegQuality = 90

// resizeAndEncode scales a decoded frame to the target resolution with
// Catmull-Rom resampling and encodes it as JPEG, preserving channel
// count: RGB frames stay 3-channel, depth frames single-channel.
func resizeAndEncode(f *video.Frame, width, height int) ([]byte, error) {
	var src, dst image.Image
	switch f.Channels {
	case 1:
		g := &image.Gray{
			Pix:    f.Pix,
			Stride: f.Width,
			Rect:   image.Rect(0, 0, f.Width, f.Height),
		}
		src = g
		dst = image.NewGray(image.Rect(0, 0, width, height))
	case 3:
		rgba := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for i, j := 0, 0; i+2 < len(f.Pix); i, j = i+3, j+4 {
			rgba.Pix[j] = f.Pix[i]
			rgba.Pix[j+1] = f.Pix[i+1]
			rgba.Pix[j+2] = f.Pix[i+2]
			rgba.Pix[j+3] = 0xff
		}
		src = rgba
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
	default:
		return nil, fmt.Errorf("camera %s: unsupported channel count %d", f.Serial, f.Channels)
	}

	draw.CatmullRom.Scale(dst.(draw.Image), dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("camera %s: encoding jpeg: %w", f.Serial, err)
	}
	return buf.Bytes(), nil
}
