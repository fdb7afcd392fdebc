package capture

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// Metadata is the EXIF summary extracted from an image candidate.
// It is advisory only: used to warn users that an upload carries GPS
// coordinates before the image becomes publicly addressable.
type Metadata struct {
	HasGPS      bool
	Latitude    float64
	Longitude   float64
	DateTaken   time.Time
	HasDate     bool
	CameraMake  string
	CameraModel string
}

// Inspect extracts EXIF metadata from the candidate bytes. Many images
// (screenshots, re-encoded web images) carry none; that is not an error here,
// only a failure to parse the container is.
func Inspect(c MediaCandidate) (*Metadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(c.Bytes))
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	m := &Metadata{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		m.HasGPS = true
		m.Latitude = gps.Latitude()
		m.Longitude = gps.Longitude()
	}

	// DateTimeOriginal is preferred; fall back to create then modify dates.
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		m.DateTaken = exifData.DateTimeOriginal()
		m.HasDate = true
	case !exifData.CreateDate().IsZero():
		m.DateTaken = exifData.CreateDate()
		m.HasDate = true
	case !exifData.ModifyDate().IsZero():
		m.DateTaken = exifData.ModifyDate()
		m.HasDate = true
	}

	log.Debug().
		Str("filename", c.Filename).
		Bool("hasGps", m.HasGPS).
		Bool("hasDate", m.HasDate).
		Msg("Image metadata inspected")

	return m, nil
}
