// SPDX-License-Identifier: MIT

package qtvnc

import (
	"image"
	"image/png"
	"io"

	"github.com/juju/errors"
)

// ServerDisplayInfo describes the remote display as announced in ServerInit.
// It is parsed once per connection and dies with the connection.
type ServerDisplayInfo struct {
	// Width and Height are the framebuffer dimensions in pixels.
	Width  uint16
	Height uint16

	// Format is the server's native pixel format.
	Format PixelFormat

	// Name is the desktop name, typically the unit's model string.
	Name string
}

// Rectangle is the header of one pixel rectangle within a FramebufferUpdate.
type Rectangle struct {
	X            uint16
	Y            uint16
	Width        uint16
	Height       uint16
	EncodingType int32
}

// Area returns the number of pixels the rectangle covers.
func (r *Rectangle) Area() int {
	return int(r.Width) * int(r.Height)
}

// FramebufferImage is one decoded screen capture: a row-major RGB buffer with
// three bytes per pixel. Ownership transfers to the caller on return; the
// client never mutates it afterwards.
type FramebufferImage struct {
	Width  int
	Height int

	// Pix holds R, G, B byte triples in row-major order.
	Pix []byte
}

// NewFramebufferImage allocates a black image of the given dimensions.
func NewFramebufferImage(width, height int) *FramebufferImage {
	return &FramebufferImage{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// RGBAt returns the channel values of the pixel at (x, y).
func (img *FramebufferImage) RGBAt(x, y int) (r, g, b uint8) {
	off := (y*img.Width + x) * 3
	return img.Pix[off], img.Pix[off+1], img.Pix[off+2]
}

// ToImage converts the capture to a standard library image.
func (img *FramebufferImage) ToImage() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		src := y * img.Width * 3
		dst := y * out.Stride
		for x := 0; x < img.Width; x++ {
			out.Pix[dst] = img.Pix[src]
			out.Pix[dst+1] = img.Pix[src+1]
			out.Pix[dst+2] = img.Pix[src+2]
			out.Pix[dst+3] = 0xff
			src += 3
			dst += 4
		}
	}
	return out
}

// EncodePNG writes the capture to w as a PNG image.
func (img *FramebufferImage) EncodePNG(w io.Writer) error {
	return errors.Annotate(png.Encode(w, img.ToImage()), "encoding png")
}
