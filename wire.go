// SPDX-License-Identifier: MIT

package qtvnc

import (
	"encoding/binary"
	"fmt"
)

// Client to server message types.
const (
	msgSetPixelFormat           uint8 = 0
	msgSetEncodings             uint8 = 2
	msgFramebufferUpdateRequest uint8 = 3
	msgKeyEvent                 uint8 = 4
	msgPointerEvent             uint8 = 5
)

// msgFramebufferUpdate is the only server to client message type this
// client accepts.
const msgFramebufferUpdate uint8 = 0

// EncodingRaw identifies the uncompressed pixel rectangle encoding, the only
// one this client ever offers or accepts.
const EncodingRaw int32 = 0

// Wire sizes of the fixed-layout message parts.
const (
	versionBannerLen = 12
	authWordLen      = 4
	serverInitMinLen = 24
	updateHeaderLen  = 4
	rectHeaderLen    = 12
)

// EncodeClientInit renders the 1-byte ClientInit message.
func EncodeClientInit(shared bool) []byte {
	if shared {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeServerInit parses a complete ServerInit message: width, height, the
// server's native pixel format, and the desktop name.
func DecodeServerInit(buf []byte) (*ServerDisplayInfo, error) {
	if len(buf) < serverInitMinLen {
		return nil, malformedMessageError("DecodeServerInit",
			fmt.Sprintf("server init requires at least %d bytes, got %d", serverInitMinLen, len(buf)), nil)
	}

	format, err := decodePixelFormat(buf[4:20])
	if err != nil {
		return nil, err
	}

	nameLen := binary.BigEndian.Uint32(buf[20:24])
	if len(buf) < serverInitMinLen+int(nameLen) {
		return nil, malformedMessageError("DecodeServerInit",
			fmt.Sprintf("desktop name declares %d bytes, only %d available", nameLen, len(buf)-serverInitMinLen), nil)
	}

	return &ServerDisplayInfo{
		Width:  binary.BigEndian.Uint16(buf[0:2]),
		Height: binary.BigEndian.Uint16(buf[2:4]),
		Format: format,
		Name:   string(buf[serverInitMinLen : serverInitMinLen+int(nameLen)]),
	}, nil
}

// EncodeSetPixelFormat renders a SetPixelFormat message requesting that the
// server deliver subsequent pixel data in the given format.
func EncodeSetPixelFormat(pf *PixelFormat) []byte {
	buf := make([]byte, 4+pixelFormatLen)
	buf[0] = msgSetPixelFormat
	// bytes 1..3 are padding
	copy(buf[4:], encodePixelFormat(pf))
	return buf
}

// EncodeSetEncodings renders a SetEncodings message listing the encodings the
// client is willing to receive, in preference order.
func EncodeSetEncodings(ids []int32) []byte {
	buf := make([]byte, 4+4*len(ids))
	buf[0] = msgSetEncodings
	// byte 1 is padding
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(ids)))
	for i, id := range ids {
		binary.BigEndian.PutUint32(buf[4+4*i:], uint32(id))
	}
	return buf
}

// EncodeFramebufferUpdateRequest renders a FramebufferUpdateRequest for the
// given region. The target server class drops the connection on a
// non-incremental request, so incremental=false is rejected with
// ErrProtocolMisuse at construction time rather than ever reaching the wire.
func EncodeFramebufferUpdateRequest(incremental bool, x, y, width, height uint16) ([]byte, error) {
	if !incremental {
		return nil, protocolMisuseError("EncodeFramebufferUpdateRequest",
			"non-incremental update requests terminate the session on this server class")
	}

	buf := make([]byte, 10)
	buf[0] = msgFramebufferUpdateRequest
	buf[1] = 1
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)
	binary.BigEndian.PutUint16(buf[6:8], width)
	binary.BigEndian.PutUint16(buf[8:10], height)
	return buf, nil
}

// DecodeUpdateHeader parses the 4-byte FramebufferUpdate header and returns
// the message type and rectangle count.
func DecodeUpdateHeader(buf []byte) (messageType uint8, rectCount uint16, err error) {
	if len(buf) < updateHeaderLen {
		return 0, 0, malformedMessageError("DecodeUpdateHeader",
			fmt.Sprintf("update header requires %d bytes, got %d", updateHeaderLen, len(buf)), nil)
	}

	messageType = buf[0]
	if messageType != msgFramebufferUpdate {
		return messageType, 0, unexpectedMessageTypeError("DecodeUpdateHeader",
			fmt.Sprintf("expected FramebufferUpdate (0), got message type %d", messageType))
	}
	// byte 1 is padding
	rectCount = binary.BigEndian.Uint16(buf[2:4])
	return messageType, rectCount, nil
}

// DecodeRectangleHeader parses a 12-byte rectangle header. The pixel payload
// that follows is the caller's to read.
func DecodeRectangleHeader(buf []byte) (*Rectangle, error) {
	if len(buf) < rectHeaderLen {
		return nil, malformedMessageError("DecodeRectangleHeader",
			fmt.Sprintf("rectangle header requires %d bytes, got %d", rectHeaderLen, len(buf)), nil)
	}

	rect := &Rectangle{
		X:            binary.BigEndian.Uint16(buf[0:2]),
		Y:            binary.BigEndian.Uint16(buf[2:4]),
		Width:        binary.BigEndian.Uint16(buf[4:6]),
		Height:       binary.BigEndian.Uint16(buf[6:8]),
		EncodingType: int32(binary.BigEndian.Uint32(buf[8:12])),
	}

	if rect.EncodingType != EncodingRaw {
		return nil, unsupportedEncodingError("DecodeRectangleHeader",
			fmt.Sprintf("unsupported encoding %d, only Raw (0) is accepted", rect.EncodingType))
	}
	return rect, nil
}

// EncodePointerEvent renders a PointerEvent with the given button mask and
// absolute position.
func EncodePointerEvent(buttonMask uint8, x, y uint16) []byte {
	buf := make([]byte, 6)
	buf[0] = msgPointerEvent
	buf[1] = buttonMask
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)
	return buf
}

// EncodeKeyEvent renders a KeyEvent for the given X11 keysym.
func EncodeKeyEvent(down bool, keysym uint32) []byte {
	buf := make([]byte, 8)
	buf[0] = msgKeyEvent
	if down {
		buf[1] = 1
	}
	// bytes 2..3 are padding
	binary.BigEndian.PutUint32(buf[4:8], keysym)
	return buf
}
