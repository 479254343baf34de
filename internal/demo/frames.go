package demo

import (
	"bytes"
	"image"
	"image/color"

	"golang.org/x/image/bmp"
)

const (
	frameWidth  = 96
	frameHeight = 32
)

// renderFrame draws a frame with a bar that moves one step per frame,
// roughly what the display wall shows during an idle cycle.
func renderFrame(n int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	bg := color.RGBA{R: 8, G: 16, B: 40, A: 255}
	bar := color.RGBA{R: 255, G: 200, B: 0, A: 255}
	x0 := (n * 4) % frameWidth
	for y := range frameHeight {
		for x := range frameWidth {
			c := bg
			if x >= x0 && x < x0+8 && y > 8 && y < frameHeight-8 {
				c = bar
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
