// SPDX-License-Identifier: MIT

package qtvnc

import (
	"encoding/binary"
	"fmt"
)

// PixelFormat describes how raw pixel bytes are encoded on the wire. The
// framing around pixel data is always big-endian; the pixel words themselves
// follow the BigEndian flag here.
//
// Decoding always derives channel values from the shifts and maxima declared
// in the negotiated format. Guessing shift combinations per named format
// ("RGB565" vs "BGR565") produced visibly wrong colors against these units
// and is deliberately not supported.
type PixelFormat struct {
	// BPP is the number of bits used to represent each pixel on the wire.
	BPP uint8

	// Depth is the number of useful bits within each pixel value.
	Depth uint8

	// BigEndian determines the byte order of multi-byte pixel words.
	BigEndian bool

	// TrueColor determines whether pixels carry direct RGB values. Indexed
	// (color map) formats are not supported by this client.
	TrueColor bool

	// RedMax, GreenMax, and BlueMax are the maximum values of each channel.
	RedMax   uint16
	GreenMax uint16
	BlueMax  uint16

	// RedShift, GreenShift, and BlueShift give how far to right-shift a
	// pixel word to bring each channel to the least significant bits.
	RedShift   uint8
	GreenShift uint8
	BlueShift  uint8
}

// pixelFormatLen is the wire size of a PixelFormat, including padding.
const pixelFormatLen = 16

// BytesPerPixel returns the number of bytes each pixel occupies on the wire.
func (pf *PixelFormat) BytesPerPixel() int {
	return int(pf.BPP) / 8
}

// ByteOrder returns the byte order governing this format's pixel words.
func (pf *PixelFormat) ByteOrder() binary.ByteOrder {
	if pf.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Validate checks that this client can decode pixels in the given format.
// Only 16- and 32-bit truecolor formats are accepted.
func (pf *PixelFormat) Validate() error {
	if pf.BPP != 16 && pf.BPP != 32 {
		return unsupportedPixelFormatError("PixelFormat.Validate",
			fmt.Sprintf("bits per pixel must be 16 or 32, got %d", pf.BPP))
	}
	if !pf.TrueColor {
		return unsupportedPixelFormatError("PixelFormat.Validate",
			"indexed (color map) pixel formats are not supported")
	}
	if pf.RedMax == 0 && pf.GreenMax == 0 && pf.BlueMax == 0 {
		return unsupportedPixelFormatError("PixelFormat.Validate",
			"all channel maxima are zero")
	}
	maxShift := pf.BPP - 1
	if pf.RedShift > maxShift || pf.GreenShift > maxShift || pf.BlueShift > maxShift {
		return unsupportedPixelFormatError("PixelFormat.Validate",
			fmt.Sprintf("channel shift exceeds %d-bit pixel word", pf.BPP))
	}
	return nil
}

// encodePixelFormat renders the 16-byte wire form of a pixel format:
// bpp, depth, big-endian flag, true-color flag, three u16 channel maxima,
// three u8 channel shifts, and three padding bytes.
func encodePixelFormat(pf *PixelFormat) []byte {
	buf := make([]byte, pixelFormatLen)
	buf[0] = pf.BPP
	buf[1] = pf.Depth
	if pf.BigEndian {
		buf[2] = 1
	}
	if pf.TrueColor {
		buf[3] = 1
	}
	binary.BigEndian.PutUint16(buf[4:6], pf.RedMax)
	binary.BigEndian.PutUint16(buf[6:8], pf.GreenMax)
	binary.BigEndian.PutUint16(buf[8:10], pf.BlueMax)
	buf[10] = pf.RedShift
	buf[11] = pf.GreenShift
	buf[12] = pf.BlueShift
	// bytes 13..15 are padding
	return buf
}

// decodePixelFormat parses the 16-byte wire form of a pixel format.
func decodePixelFormat(buf []byte) (PixelFormat, error) {
	var pf PixelFormat
	if len(buf) < pixelFormatLen {
		return pf, malformedMessageError("decodePixelFormat",
			fmt.Sprintf("pixel format requires %d bytes, got %d", pixelFormatLen, len(buf)), nil)
	}
	pf.BPP = buf[0]
	pf.Depth = buf[1]
	pf.BigEndian = buf[2] != 0
	pf.TrueColor = buf[3] != 0
	pf.RedMax = binary.BigEndian.Uint16(buf[4:6])
	pf.GreenMax = binary.BigEndian.Uint16(buf[6:8])
	pf.BlueMax = binary.BigEndian.Uint16(buf[8:10])
	pf.RedShift = buf[10]
	pf.GreenShift = buf[11]
	pf.BlueShift = buf[12]
	return pf, nil
}

// Pixel format presets.
var (
	// Format32BitRGBA is the 32-bit little-endian RGBA format the production
	// capture path requests for full-fidelity screenshots. The unit's server
	// converts from its native format on the fly.
	Format32BitRGBA = &PixelFormat{
		BPP:        32,
		Depth:      24,
		BigEndian:  false,
		TrueColor:  true,
		RedMax:     255,
		GreenMax:   255,
		BlueMax:    255,
		RedShift:   0,
		GreenShift: 8,
		BlueShift:  16,
	}

	// Format16BitRGB565 matches the native format of the 480x272 panels
	// these units ship with.
	Format16BitRGB565 = &PixelFormat{
		BPP:        16,
		Depth:      16,
		BigEndian:  false,
		TrueColor:  true,
		RedMax:     31,
		GreenMax:   63,
		BlueMax:    31,
		RedShift:   11,
		GreenShift: 5,
		BlueShift:  0,
	}
)
