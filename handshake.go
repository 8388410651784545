// SPDX-License-Identifier: MIT

package qtvnc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// Phase tracks connection bring-up and use. A connection moves strictly
// forward through the handshake phases and is spent after a single capture
// or input operation.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseVersionExchanged
	PhaseAuthOK
	PhaseClientInitSent
	PhaseReady
	PhaseCapturing
	PhaseInjecting
	PhaseClosed
	PhaseFailed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseVersionExchanged:
		return "VERSION_EXCHANGED"
	case PhaseAuthOK:
		return "AUTH_OK"
	case PhaseClientInitSent:
		return "CLIENT_INIT_SENT"
	case PhaseReady:
		return "READY"
	case PhaseCapturing:
		return "CAPTURING"
	case PhaseInjecting:
		return "INJECTING"
	case PhaseClosed:
		return "CLOSED"
	case PhaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// authNone is the only security type value this client accepts.
const authNone uint32 = 1

// maxDesktopNameLen bounds the ServerInit name field before allocation.
const maxDesktopNameLen = 4096

// Conn is a single-use connection to the display server. It is created by
// Client.WithConnection, carries the handshake result and the pixel format
// currently in effect, and is closed unconditionally when the operation ends.
// It must not be shared between goroutines.
type Conn struct {
	c     net.Conn
	cfg   *config
	phase Phase

	info *ServerDisplayInfo

	// format is the pixel format in effect for decoding: the server's
	// native format until a SetPixelFormat is sent, the requested format
	// afterwards.
	format PixelFormat
}

// DisplayInfo returns the display descriptor parsed from ServerInit, or nil
// before the handshake completes.
func (c *Conn) DisplayInfo() *ServerDisplayInfo {
	return c.info
}

// Phase returns the connection's current phase.
func (c *Conn) Phase() Phase {
	return c.phase
}

// handshake drives the connection from INIT to READY: version banner
// exchange, security type check, ClientInit, and ServerInit.
func (c *Conn) handshake() error {
	// Step 1: read the server's 12-byte version banner and echo it back.
	// The protocol version is not negotiated beyond matching the server's.
	banner := make([]byte, versionBannerLen)
	if err := c.readFull(banner, c.cfg.handshakeTimeout); err != nil {
		return c.abort("handshake", err)
	}
	if !bytes.HasPrefix(banner, []byte("RFB ")) {
		c.phase = PhaseFailed
		return notAnRFBServerError("handshake",
			fmt.Sprintf("version banner %q does not start with RFB", banner))
	}
	if err := c.write(banner); err != nil {
		c.phase = PhaseFailed
		return transportError("handshake", "failed to echo version banner", err)
	}
	c.phase = PhaseVersionExchanged
	log.Debugf("version exchanged: %q", bytes.TrimRight(banner, "\n"))

	// Step 2: the server announces a single 4-byte security type word.
	// Only "no authentication" is supported; password auth is out of scope.
	auth := make([]byte, authWordLen)
	if err := c.readFull(auth, c.cfg.handshakeTimeout); err != nil {
		return c.abort("handshake", err)
	}
	authType := binary.BigEndian.Uint32(auth)
	if authType != authNone {
		c.phase = PhaseFailed
		return unsupportedAuthError("handshake",
			fmt.Sprintf("server requires authentication type %d, only none (1) is supported", authType))
	}
	c.phase = PhaseAuthOK

	// Step 3: ClientInit with the shared-access flag.
	if err := c.write(EncodeClientInit(c.cfg.shared)); err != nil {
		c.phase = PhaseFailed
		return transportError("handshake", "failed to send client init", err)
	}
	c.phase = PhaseClientInitSent

	// Step 4: ServerInit.
	fixed := make([]byte, serverInitMinLen)
	if err := c.readFull(fixed, c.cfg.handshakeTimeout); err != nil {
		return c.abort("handshake", err)
	}
	nameLen := binary.BigEndian.Uint32(fixed[20:24])
	if nameLen > maxDesktopNameLen {
		c.phase = PhaseFailed
		return malformedMessageError("handshake",
			fmt.Sprintf("desktop name length %d exceeds limit %d", nameLen, maxDesktopNameLen), nil)
	}
	name := make([]byte, nameLen)
	if err := c.readFull(name, c.cfg.handshakeTimeout); err != nil {
		return c.abort("handshake", err)
	}

	info, err := DecodeServerInit(append(fixed, name...))
	if err != nil {
		c.phase = PhaseFailed
		return err
	}

	c.info = info
	c.format = info.Format
	c.phase = PhaseReady
	log.Infof("handshake complete: %q %dx%d, native %d bpp",
		info.Name, info.Width, info.Height, info.Format.BPP)
	return nil
}

// abort records a handshake failure caused by a peer close or timeout,
// keeping the last completed phase for diagnostics.
func (c *Conn) abort(op string, err error) error {
	completed := c.phase
	c.phase = PhaseFailed
	return handshakeAbortedError(op, completed, err)
}

// readFull reads exactly len(buf) bytes, applying the given read deadline.
func (c *Conn) readFull(buf []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := c.c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	_, err := io.ReadFull(c.c, buf)
	return err
}

// write sends buf, applying the configured write deadline.
func (c *Conn) write(buf []byte) error {
	if c.cfg.writeTimeout > 0 {
		if err := c.c.SetWriteDeadline(time.Now().Add(c.cfg.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.c.Write(buf)
	return err
}

// close tears down the transport. Closing aborts any pending read.
func (c *Conn) close() {
	if c.phase == PhaseClosed {
		return
	}
	c.phase = PhaseClosed
	if err := c.c.Close(); err != nil {
		log.Debugf("close: %v", err)
	}
}
