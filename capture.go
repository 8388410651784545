// SPDX-License-Identifier: MIT

package qtvnc

import (
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/juju/errors"
)

// maxFrameDimension bounds the geometry accepted from ServerInit before the
// capture path allocates width*height*bytesPerPixel of buffer space.
const maxFrameDimension = 4096

// Capture performs the one framebuffer capture this connection is good for.
//
// If requested is non-nil, a SetPixelFormat is sent first and the requested
// format becomes the one used for decoding; otherwise the server's native
// format applies. The client then restricts encodings to Raw, sends a single
// incremental update request for the full screen, and accumulates exactly
//
//	4 (update header) + 12 (rectangle header) + width*height*bytesPerPixel
//
// bytes before decoding. Offering only Raw is intentional rather than an
// optimization: any other encoding the server might pick could not be parsed.
// The incremental request on a fresh connection still yields the full screen,
// since the server has no prior subscription baseline to diff against.
//
// A read that goes idle longer than the configured frame idle timeout, or a
// peer close mid-frame, fails with ErrIncompleteFrame; partial frames are
// never returned.
func (c *Conn) Capture(requested *PixelFormat) (*FramebufferImage, error) {
	if c.phase != PhaseReady {
		return nil, protocolMisuseError("Capture",
			fmt.Sprintf("connection in phase %s, captures require READY; open a fresh connection per operation", c.phase))
	}
	c.phase = PhaseCapturing

	format := c.format
	if requested != nil {
		if err := requested.Validate(); err != nil {
			return nil, err
		}
		if err := c.write(EncodeSetPixelFormat(requested)); err != nil {
			return nil, transportError("Capture", "failed to send set pixel format", err)
		}
		format = *requested
		c.format = format
	}

	if err := c.write(EncodeSetEncodings([]int32{EncodingRaw})); err != nil {
		return nil, transportError("Capture", "failed to send set encodings", err)
	}

	width, height := c.info.Width, c.info.Height
	if width == 0 || height == 0 || width > maxFrameDimension || height > maxFrameDimension {
		return nil, malformedMessageError("Capture",
			fmt.Sprintf("implausible framebuffer geometry %dx%d", width, height),
			errors.Errorf("refusing %d pixel allocation", int(width)*int(height)))
	}

	req, err := EncodeFramebufferUpdateRequest(true, 0, 0, width, height)
	if err != nil {
		return nil, err
	}
	if err := c.write(req); err != nil {
		return nil, transportError("Capture", "failed to send framebuffer update request", err)
	}

	expected := updateHeaderLen + rectHeaderLen + int(width)*int(height)*format.BytesPerPixel()
	buf, err := c.accumulate(expected)
	if err != nil {
		return nil, err
	}

	if _, rectCount, err := DecodeUpdateHeader(buf[:updateHeaderLen]); err != nil {
		return nil, err
	} else if rectCount != 1 {
		return nil, unsupportedEncodingError("Capture",
			fmt.Sprintf("expected exactly 1 rectangle, server reported %d", rectCount))
	}

	rect, err := DecodeRectangleHeader(buf[updateHeaderLen : updateHeaderLen+rectHeaderLen])
	if err != nil {
		return nil, err
	}
	if rect.X != 0 || rect.Y != 0 || rect.Width != width || rect.Height != height {
		return nil, malformedMessageError("Capture",
			fmt.Sprintf("rectangle %d,%d %dx%d does not cover the full %dx%d screen",
				rect.X, rect.Y, rect.Width, rect.Height, width, height), nil)
	}

	img, err := DecodeRawPixels(buf[updateHeaderLen+rectHeaderLen:], &format, width, height)
	if err != nil {
		return nil, err
	}
	log.Debugf("captured %dx%d frame, %d bytes at %d bpp", width, height, expected, format.BPP)
	return img, nil
}

// accumulate keeps reading from the socket until exactly expected bytes have
// arrived. Each read gets a fresh idle deadline; an idle timeout or peer
// close with fewer bytes received fails with ErrIncompleteFrame.
func (c *Conn) accumulate(expected int) ([]byte, error) {
	buf := make([]byte, expected)
	got := 0
	for got < expected {
		if c.cfg.frameIdleTimeout > 0 {
			if err := c.c.SetReadDeadline(time.Now().Add(c.cfg.frameIdleTimeout)); err != nil {
				return nil, transportError("Capture", "failed to set read deadline", err)
			}
		}
		n, err := c.c.Read(buf[got:])
		got += n
		if err != nil {
			if stderrors.Is(err, io.EOF) || isTimeout(err) {
				return nil, incompleteFrameError("Capture",
					fmt.Sprintf("received %d of %d expected bytes", got, expected), err)
			}
			return nil, transportError("Capture", "failed to read framebuffer update", err)
		}
	}
	return buf, nil
}

// isTimeout reports whether err is a network read deadline expiry.
func isTimeout(err error) bool {
	var nerr net.Error
	return stderrors.As(err, &nerr) && nerr.Timeout()
}
