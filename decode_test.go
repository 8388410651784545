// SPDX-License-Identifier: MIT

package qtvnc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rgb struct{ r, g, b uint8 }

// encodeTestPixels renders one pixel word per color in the given format so
// decode tests can verify the shift/max scaling rule against known colors.
func encodeTestPixels(t *testing.T, pf *PixelFormat, colors []rgb) []byte {
	t.Helper()

	order := pf.ByteOrder()
	bytesPerPixel := pf.BytesPerPixel()
	buf := make([]byte, len(colors)*bytesPerPixel)
	for i, c := range colors {
		pixel := composePixel(pf, c.r, c.g, c.b)
		switch bytesPerPixel {
		case 2:
			order.PutUint16(buf[i*2:], uint16(pixel))
		case 4:
			order.PutUint32(buf[i*4:], pixel)
		}
	}
	return buf
}

// Pure channel extremes and black map exactly under the scaling rule in
// every truecolor format, so each format must decode them to identical RGB.
func TestDecodeRawPixels_PureColors(t *testing.T) {
	colors := []rgb{
		{255, 0, 0},
		{0, 255, 0},
		{0, 0, 255},
		{255, 255, 255},
		{0, 0, 0},
	}

	bgr565 := &PixelFormat{
		BPP: 16, Depth: 16, TrueColor: true,
		RedMax: 31, GreenMax: 63, BlueMax: 31,
		RedShift: 0, GreenShift: 5, BlueShift: 11,
	}

	formats := map[string]*PixelFormat{
		"rgb565 little endian": Format16BitRGB565,
		"bgr565 little endian": bgr565,
		"rgba32 little endian": Format32BitRGBA,
	}

	// Big-endian variants of each.
	bigVariants := map[string]*PixelFormat{}
	for name, pf := range formats {
		big := *pf
		big.BigEndian = true
		bigVariants[name+" big endian flipped"] = &big
	}
	for name, pf := range bigVariants {
		formats[name] = pf
	}

	for name, pf := range formats {
		t.Run(name, func(t *testing.T) {
			data := encodeTestPixels(t, pf, colors)

			img, err := DecodeRawPixels(data, pf, uint16(len(colors)), 1)
			require.NoError(t, err)

			for i, want := range colors {
				r, g, b := img.RGBAt(i, 0)
				assert.Equal(t, want, rgb{r, g, b}, "pixel %d", i)
			}
		})
	}
}

// The same scene decoded under different shift layouts must agree: channel
// placement comes from the format, never from assumptions about RGB order.
func TestDecodeRawPixels_ShiftsGovernChannelOrder(t *testing.T) {
	colors := []rgb{{255, 0, 0}, {0, 0, 255}}

	swapped := *Format16BitRGB565
	swapped.RedShift, swapped.BlueShift = swapped.BlueShift, swapped.RedShift

	a, err := DecodeRawPixels(encodeTestPixels(t, Format16BitRGB565, colors),
		Format16BitRGB565, 2, 1)
	require.NoError(t, err)

	b, err := DecodeRawPixels(encodeTestPixels(t, &swapped, colors), &swapped, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestDecodeRawPixels_MidRangeValues(t *testing.T) {
	// 565 green: wire value 32 of 63 scales to 32*255/63 = 129.
	pf := Format16BitRGB565
	data := make([]byte, 2)
	pf.ByteOrder().PutUint16(data, 32<<pf.GreenShift)

	img, err := DecodeRawPixels(data, pf, 1, 1)
	require.NoError(t, err)

	r, g, b := img.RGBAt(0, 0)
	assert.Equal(t, uint8(0), r)
	assert.Equal(t, uint8(129), g)
	assert.Equal(t, uint8(0), b)
}

func TestDecodeRawPixels_LengthMismatch(t *testing.T) {
	data := make([]byte, 4*3*2-1) // one byte short of 4x3 at 16 bpp

	_, err := DecodeRawPixels(data, Format16BitRGB565, 4, 3)
	assert.True(t, IsError(err, ErrMalformedMessage))
}

func TestDecodeRawPixels_RejectsUnsupportedFormat(t *testing.T) {
	pf := *Format16BitRGB565
	pf.BPP = 8

	_, err := DecodeRawPixels(make([]byte, 12), &pf, 4, 3)
	assert.True(t, IsError(err, ErrUnsupportedPixelFormat))
}

func TestScaleChannel_ZeroMax(t *testing.T) {
	assert.Equal(t, uint8(0), scaleChannel(0xffffffff, 0, 0))
}
