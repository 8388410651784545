// SPDX-License-Identifier: MIT

package qtvnc

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
)

// mockDisplayServer emulates the quirky Qt Embedded VNC dialect for tests:
// a bare 4-byte security word, at most one framebuffer update per
// connection, and an immediate disconnect on any non-incremental update
// request.
type mockDisplayServer struct {
	listener net.Listener
	addr     string
	wg       sync.WaitGroup
	stop     chan struct{}

	Banner       string
	AuthWord     uint32
	Width        uint16
	Height       uint16
	Name         string
	NativeFormat PixelFormat

	// Failure injection.
	CloseAfterBanner   bool
	CloseAfterAuth     bool
	RespondMsgType     uint8  // overrides the update header message type when nonzero
	RectCountOverride  uint16 // overrides the rectangle count when nonzero
	EncodingOverride   int32  // overrides the rectangle encoding when nonzero
	TruncateFrameBytes int    // withhold the last N frame bytes and stall

	mu       sync.Mutex
	connects int
	closes   int
	echoes   [][]byte
}

func newMockDisplayServer() *mockDisplayServer {
	return &mockDisplayServer{
		Banner:       "RFB 003.003\n",
		AuthWord:     1,
		Width:        16,
		Height:       8,
		Name:         "Qt Embedded Display",
		NativeFormat: *Format16BitRGB565,
		stop:         make(chan struct{}),
	}
}

func (m *mockDisplayServer) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	m.listener = listener
	m.addr = listener.Addr().String()

	m.wg.Add(1)
	go m.serve()
	return nil
}

func (m *mockDisplayServer) Stop() {
	close(m.stop)
	if m.listener != nil {
		m.listener.Close()
	}
	m.wg.Wait()
}

func (m *mockDisplayServer) Addr() string {
	return m.addr
}

// HostPort splits the listen address for qtvnc.New.
func (m *mockDisplayServer) HostPort() (string, int) {
	addr := m.listener.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

// Counts returns the number of accepted and finished connections.
func (m *mockDisplayServer) Counts() (connects, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects, m.closes
}

// Echoes returns the version banners echoed by clients.
func (m *mockDisplayServer) Echoes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.echoes
}

func (m *mockDisplayServer) serve() {
	defer m.wg.Done()

	for {
		conn, err := m.listener.Accept()
		if err != nil {
			select {
			case <-m.stop:
				return
			default:
				continue
			}
		}

		m.mu.Lock()
		m.connects++
		m.mu.Unlock()

		m.wg.Add(1)
		go m.handleConnection(conn)
	}
}

func (m *mockDisplayServer) handleConnection(conn net.Conn) {
	defer m.wg.Done()
	defer func() {
		conn.Close()
		m.mu.Lock()
		m.closes++
		m.mu.Unlock()
	}()

	if _, err := conn.Write([]byte(m.Banner)); err != nil {
		return
	}
	if m.CloseAfterBanner {
		return
	}

	echo := make([]byte, len(m.Banner))
	if _, err := io.ReadFull(conn, echo); err != nil {
		return
	}
	m.mu.Lock()
	m.echoes = append(m.echoes, echo)
	m.mu.Unlock()

	var authWord [4]byte
	binary.BigEndian.PutUint32(authWord[:], m.AuthWord)
	if _, err := conn.Write(authWord[:]); err != nil {
		return
	}
	if m.AuthWord != authNone {
		// Client bails out; wait for it to hang up.
		io.Copy(io.Discard, conn)
		return
	}

	var clientInit [1]byte
	if _, err := io.ReadFull(conn, clientInit[:]); err != nil {
		return
	}
	if m.CloseAfterAuth {
		return
	}

	if err := m.sendServerInit(conn); err != nil {
		return
	}

	m.messageLoop(conn)
}

func (m *mockDisplayServer) sendServerInit(conn net.Conn) error {
	buf := make([]byte, serverInitMinLen+len(m.Name))
	binary.BigEndian.PutUint16(buf[0:2], m.Width)
	binary.BigEndian.PutUint16(buf[2:4], m.Height)
	copy(buf[4:20], encodePixelFormat(&m.NativeFormat))
	binary.BigEndian.PutUint32(buf[20:24], uint32(len(m.Name)))
	copy(buf[serverInitMinLen:], m.Name)
	_, err := conn.Write(buf)
	return err
}

func (m *mockDisplayServer) messageLoop(conn net.Conn) {
	effective := m.NativeFormat
	served := false

	for {
		var msgType [1]byte
		if _, err := io.ReadFull(conn, msgType[:]); err != nil {
			return
		}

		switch msgType[0] {
		case msgSetPixelFormat:
			rest := make([]byte, 3+pixelFormatLen)
			if _, err := io.ReadFull(conn, rest); err != nil {
				return
			}
			pf, err := decodePixelFormat(rest[3:])
			if err != nil {
				return
			}
			effective = pf

		case msgSetEncodings:
			head := make([]byte, 3)
			if _, err := io.ReadFull(conn, head); err != nil {
				return
			}
			count := binary.BigEndian.Uint16(head[1:3])
			ids := make([]byte, 4*int(count))
			if _, err := io.ReadFull(conn, ids); err != nil {
				return
			}

		case msgFramebufferUpdateRequest:
			rest := make([]byte, 9)
			if _, err := io.ReadFull(conn, rest); err != nil {
				return
			}
			// The quirk under test: a non-incremental request, or any
			// request after the first, terminates the session.
			if rest[0] == 0 || served {
				return
			}
			served = true
			if err := m.sendUpdate(conn, &effective); err != nil {
				return
			}
			if m.TruncateFrameBytes > 0 {
				// Stall with the connection open so the client's idle
				// timeout fires rather than an EOF.
				io.Copy(io.Discard, conn)
				return
			}

		case msgPointerEvent:
			rest := make([]byte, 5)
			if _, err := io.ReadFull(conn, rest); err != nil {
				return
			}

		case msgKeyEvent:
			rest := make([]byte, 7)
			if _, err := io.ReadFull(conn, rest); err != nil {
				return
			}

		default:
			return
		}
	}
}

func (m *mockDisplayServer) sendUpdate(conn net.Conn, pf *PixelFormat) error {
	bytesPerPixel := pf.BytesPerPixel()
	total := updateHeaderLen + rectHeaderLen + int(m.Width)*int(m.Height)*bytesPerPixel
	buf := make([]byte, total)

	buf[0] = m.RespondMsgType
	rectCount := uint16(1)
	if m.RectCountOverride != 0 {
		rectCount = m.RectCountOverride
	}
	binary.BigEndian.PutUint16(buf[2:4], rectCount)

	binary.BigEndian.PutUint16(buf[8:10], m.Width)
	binary.BigEndian.PutUint16(buf[10:12], m.Height)
	binary.BigEndian.PutUint32(buf[12:16], uint32(m.EncodingOverride))

	order := pf.ByteOrder()
	off := updateHeaderLen + rectHeaderLen
	for y := 0; y < int(m.Height); y++ {
		for x := 0; x < int(m.Width); x++ {
			r, g, b := testPatternAt(x, y)
			pixel := composePixel(pf, r, g, b)
			switch bytesPerPixel {
			case 2:
				order.PutUint16(buf[off:], uint16(pixel))
			case 4:
				order.PutUint32(buf[off:], pixel)
			}
			off += bytesPerPixel
		}
	}

	if m.TruncateFrameBytes > 0 && m.TruncateFrameBytes < total {
		buf = buf[:total-m.TruncateFrameBytes]
	}
	_, err := conn.Write(buf)
	return err
}

// testPatternAt yields a deterministic pattern of pure colors. Pure channel
// extremes survive both 16- and 32-bit depth conversion exactly, so captures
// can be compared byte for byte across formats.
func testPatternAt(x, y int) (uint8, uint8, uint8) {
	switch (x + y) % 3 {
	case 0:
		return 255, 0, 0
	case 1:
		return 0, 255, 0
	default:
		return 0, 0, 255
	}
}

// composePixel builds a pixel word from 8-bit channels per the format.
func composePixel(pf *PixelFormat, r, g, b uint8) uint32 {
	return (uint32(r)*uint32(pf.RedMax)/255)<<pf.RedShift |
		(uint32(g)*uint32(pf.GreenMax)/255)<<pf.GreenShift |
		(uint32(b)*uint32(pf.BlueMax)/255)<<pf.BlueShift
}
