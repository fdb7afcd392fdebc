package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// previewQuality is the JPEG quality used for preview thumbnails.
const previewQuality = 80

// Preview decodes the candidate and scales it to fit within maxDim pixels,
// returning a JPEG data URL suitable for immediate local display.
//
// Preview generation never gates submission: a decode failure means the
// caller simply has no thumbnail to show.
func Preview(c MediaCandidate, maxDim int) (string, error) {
	src, format, err := image.Decode(bytes.NewReader(c.Bytes))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxDim || h > maxDim {
		if w >= h {
			h = h * maxDim / w
			w = maxDim
		} else {
			w = w * maxDim / h
			h = maxDim
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: previewQuality}); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("width", w).
		Int("height", h).
		Int("previewBytes", buf.Len()).
		Msg("Preview thumbnail generated")

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
