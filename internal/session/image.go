package session

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
)

// FormatUnknown is reported for binary frames no registered decoder reads.
const FormatUnknown = "unknown"

// Image is the latest binary frame. The display server sends BMPs; PNG and
// JPEG are recognized as well.
type Image struct {
	Data       []byte    `json:"-"`
	Format     string    `json:"format"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Size       int       `json:"size"`
	ReceivedAt time.Time `json:"received_at"`
}

func probeImage(data []byte, at time.Time) *Image {
	img := &Image{Data: bytes.Clone(data), Format: FormatUnknown, Size: len(data), ReceivedAt: at}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return img
	}
	img.Format = format
	img.Width = cfg.Width
	img.Height = cfg.Height
	return img
}

// ContentType returns the MIME type of the frame.
func (i *Image) ContentType() string {
	switch i.Format {
	case "bmp":
		return "image/bmp"
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
