// SPDX-License-Identifier: MIT

package qtvnc

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/juju/errors"
)

// Default timeouts, matching what the units tolerate in practice. The frame
// idle timeout is generous because the embedded server streams a full
// uncompressed frame over a slow link.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultFrameIdleTimeout = 30 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultClickHold        = 50 * time.Millisecond
)

// config holds per-client settings. All values are plain configuration
// supplied by the caller; the client reads no environment or flags.
type config struct {
	connectTimeout   time.Duration
	handshakeTimeout time.Duration
	frameIdleTimeout time.Duration
	writeTimeout     time.Duration
	clickHold        time.Duration
	shared           bool
}

// Option configures a Client.
type Option func(*config)

// WithConnectTimeout sets the timeout for establishing the TCP connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.connectTimeout = d
	}
}

// WithHandshakeTimeout sets the per-read timeout for each handshake step.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.handshakeTimeout = d
	}
}

// WithFrameIdleTimeout sets how long a capture read may go idle before the
// frame is abandoned with ErrIncompleteFrame.
func WithFrameIdleTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.frameIdleTimeout = d
	}
}

// WithWriteTimeout sets the timeout for individual writes.
func WithWriteTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.writeTimeout = d
	}
}

// WithClickHold sets the pause between button-down and button-up in Click,
// and between key-down and key-up in PressKey.
func WithClickHold(d time.Duration) Option {
	return func(cfg *config) {
		cfg.clickHold = d
	}
}

// WithExclusive requests exclusive display access instead of shared. The
// units run a single display session either way; shared is the default so a
// client never evicts a technician's viewer.
func WithExclusive(exclusive bool) Option {
	return func(cfg *config) {
		cfg.shared = !exclusive
	}
}

// Client is the entry point for all operations against one display server.
// Because the server cannot reliably service more than one capture per
// session, every logical operation opens a fresh connection, runs the
// handshake, performs exactly one action, and closes the connection whether
// the action succeeded or not. A Client holds no connection state of its own
// and is safe to copy; operations against the same unit should be serialized
// by the caller.
type Client struct {
	host string
	port int
	cfg  config
}

// New creates a client for the display server at host:port.
func New(host string, port int, opts ...Option) *Client {
	cfg := config{
		connectTimeout:   DefaultConnectTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		frameIdleTimeout: DefaultFrameIdleTimeout,
		writeTimeout:     DefaultWriteTimeout,
		clickHold:        DefaultClickHold,
		shared:           true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{host: host, port: port, cfg: cfg}
}

// Addr returns the server address in host:port form.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
}

// WithConnection opens a fresh connection, runs the handshake to READY,
// invokes op, and closes the connection on every exit path. This is the
// structural answer to the server's one-operation-per-session limit: rather
// than retrying on failure, no second operation is ever attempted on one
// connection. Retry, if desired, means calling WithConnection again.
//
// Cancelling ctx closes the underlying connection, aborting any pending read.
func (c *Client) WithConnection(ctx context.Context, op func(*Conn) error) error {
	if err := ctx.Err(); err != nil {
		return transportError("WithConnection", "context done before dialing", err)
	}

	dialer := net.Dialer{Timeout: c.cfg.connectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", c.Addr())
	if err != nil {
		return transportError("WithConnection",
			fmt.Sprintf("failed to connect to %s", c.Addr()), err)
	}

	conn := &Conn{c: nc, cfg: &c.cfg, phase: PhaseInit}
	defer conn.close()

	stop := context.AfterFunc(ctx, func() { nc.Close() })
	defer stop()

	log.Debugf("connected to %s", c.Addr())
	if err := conn.handshake(); err != nil {
		return err
	}
	return op(conn)
}

// DisplayInfo connects, handshakes, and returns the display descriptor
// without requesting any framebuffer data.
func (c *Client) DisplayInfo(ctx context.Context) (*ServerDisplayInfo, error) {
	var info *ServerDisplayInfo
	err := c.WithConnection(ctx, func(conn *Conn) error {
		info = conn.DisplayInfo()
		return nil
	})
	if err != nil {
		return nil, errors.Annotatef(err, "display info from %s", c.Addr())
	}
	return info, nil
}

// CaptureScreen captures one full frame in the server's native pixel format.
func (c *Client) CaptureScreen(ctx context.Context) (*FramebufferImage, error) {
	return c.capture(ctx, nil)
}

// CaptureScreenAs captures one full frame, asking the server to convert to
// the given pixel format first.
func (c *Client) CaptureScreenAs(ctx context.Context, format *PixelFormat) (*FramebufferImage, error) {
	return c.capture(ctx, format)
}

func (c *Client) capture(ctx context.Context, format *PixelFormat) (*FramebufferImage, error) {
	var img *FramebufferImage
	err := c.WithConnection(ctx, func(conn *Conn) error {
		var err error
		img, err = conn.Capture(format)
		return err
	})
	if err != nil {
		return nil, errors.Annotatef(err, "capture from %s", c.Addr())
	}
	return img, nil
}

// Screenshot captures one frame forced to 32-bit RGBA for full fidelity and
// returns it encoded as PNG. Scaling and other post-processing are the
// caller's concern.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := c.CaptureScreenAs(ctx, Format32BitRGBA)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := img.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MoveMouse moves the pointer over a fresh connection.
func (c *Client) MoveMouse(ctx context.Context, x, y uint16) error {
	err := c.WithConnection(ctx, func(conn *Conn) error {
		return conn.MoveMouse(x, y)
	})
	return errors.Annotatef(err, "move mouse on %s", c.Addr())
}

// Click clicks a pointer button over a fresh connection.
func (c *Client) Click(ctx context.Context, x, y uint16, button uint8) error {
	err := c.WithConnection(ctx, func(conn *Conn) error {
		return conn.Click(x, y, button)
	})
	return errors.Annotatef(err, "click on %s", c.Addr())
}

// PressKey presses and releases a key over a fresh connection.
func (c *Client) PressKey(ctx context.Context, keysym uint32) error {
	err := c.WithConnection(ctx, func(conn *Conn) error {
		return conn.PressKey(keysym)
	})
	return errors.Annotatef(err, "press key on %s", c.Addr())
}

// TypeText types a string over a single fresh connection. The whole string
// counts as one input operation; the connection is closed afterwards.
func (c *Client) TypeText(ctx context.Context, text string) error {
	err := c.WithConnection(ctx, func(conn *Conn) error {
		return conn.TypeText(text)
	})
	return errors.Annotatef(err, "type text on %s", c.Addr())
}
