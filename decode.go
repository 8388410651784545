// SPDX-License-Identifier: MIT

package qtvnc

import (
	"fmt"
)

// DecodeRawPixels converts a Raw-encoded pixel payload into an RGB image
// using only the numeric parameters of the negotiated pixel format.
//
// Each pixel word is read with the format's byte order and every channel is
// scaled with the same rule:
//
//	value = ((pixel >> shift) & max) * 255 / max
//
// The rule covers 16-bit truecolor (5/6/5 and 5/5/5 channels) and 32-bit
// formats alike; only the declared shifts and maxima differ.
func DecodeRawPixels(data []byte, format *PixelFormat, width, height uint16) (*FramebufferImage, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	bytesPerPixel := format.BytesPerPixel()
	expected := int(width) * int(height) * bytesPerPixel
	if len(data) != expected {
		return nil, malformedMessageError("DecodeRawPixels",
			fmt.Sprintf("pixel payload is %d bytes, %dx%d at %d bpp requires %d",
				len(data), width, height, format.BPP, expected), nil)
	}

	order := format.ByteOrder()
	img := NewFramebufferImage(int(width), int(height))

	out := 0
	for off := 0; off < expected; off += bytesPerPixel {
		var pixel uint32
		switch bytesPerPixel {
		case 2:
			pixel = uint32(order.Uint16(data[off:]))
		case 4:
			pixel = order.Uint32(data[off:])
		}

		img.Pix[out] = scaleChannel(pixel, format.RedShift, format.RedMax)
		img.Pix[out+1] = scaleChannel(pixel, format.GreenShift, format.GreenMax)
		img.Pix[out+2] = scaleChannel(pixel, format.BlueShift, format.BlueMax)
		out += 3
	}

	return img, nil
}

// scaleChannel extracts one channel from a pixel word and scales it to the
// 0..255 range.
func scaleChannel(pixel uint32, shift uint8, max uint16) uint8 {
	if max == 0 {
		return 0
	}
	return uint8(((pixel >> shift) & uint32(max)) * 255 / uint32(max))
}
