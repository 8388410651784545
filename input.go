// SPDX-License-Identifier: MIT

package qtvnc

import (
	"fmt"
	"time"
)

// Pointer button numbers. The wire mask for button n is 1 << (n-1).
const (
	ButtonLeft   uint8 = 1
	ButtonMiddle uint8 = 2
	ButtonRight  uint8 = 3
)

// injecting gates input operations on handshake state. Input only needs
// READY; no framebuffer request is ever made on an injecting connection.
func (c *Conn) injecting(op string) error {
	switch c.phase {
	case PhaseReady:
		c.phase = PhaseInjecting
		return nil
	case PhaseInjecting:
		return nil
	default:
		return protocolMisuseError(op,
			fmt.Sprintf("connection in phase %s, input requires READY", c.phase))
	}
}

// MoveMouse sends a single PointerEvent with no buttons pressed.
func (c *Conn) MoveMouse(x, y uint16) error {
	if err := c.injecting("MoveMouse"); err != nil {
		return err
	}
	if err := c.write(EncodePointerEvent(0, x, y)); err != nil {
		return transportError("MoveMouse", "failed to send pointer event", err)
	}
	log.Debugf("pointer moved to (%d, %d)", x, y)
	return nil
}

// Click presses and releases a pointer button at (x, y): button-down,
// a short fixed pause so the touchscreen UI registers the press, button-up.
// Exactly two PointerEvents are emitted.
func (c *Conn) Click(x, y uint16, button uint8) error {
	if button < 1 || button > 8 {
		return protocolMisuseError("Click",
			fmt.Sprintf("button must be 1..8, got %d", button))
	}
	if err := c.injecting("Click"); err != nil {
		return err
	}

	mask := uint8(1) << (button - 1)
	if err := c.write(EncodePointerEvent(mask, x, y)); err != nil {
		return transportError("Click", "failed to send button down", err)
	}
	time.Sleep(c.cfg.clickHold)
	if err := c.write(EncodePointerEvent(0, x, y)); err != nil {
		return transportError("Click", "failed to send button up", err)
	}
	log.Debugf("clicked button %d at (%d, %d)", button, x, y)
	return nil
}

// HoldButton presses a pointer button at (x, y) without releasing it.
// Multi-button chords are not composed; the mask carries a single button.
func (c *Conn) HoldButton(button uint8, x, y uint16) error {
	if button < 1 || button > 8 {
		return protocolMisuseError("HoldButton",
			fmt.Sprintf("button must be 1..8, got %d", button))
	}
	if err := c.injecting("HoldButton"); err != nil {
		return err
	}
	if err := c.write(EncodePointerEvent(uint8(1)<<(button-1), x, y)); err != nil {
		return transportError("HoldButton", "failed to send button down", err)
	}
	return nil
}

// ReleaseButton releases all pointer buttons at (x, y).
func (c *Conn) ReleaseButton(x, y uint16) error {
	if err := c.injecting("ReleaseButton"); err != nil {
		return err
	}
	if err := c.write(EncodePointerEvent(0, x, y)); err != nil {
		return transportError("ReleaseButton", "failed to send button up", err)
	}
	return nil
}

// PressKey presses and releases the key identified by an X11 keysym.
func (c *Conn) PressKey(keysym uint32) error {
	if err := c.injecting("PressKey"); err != nil {
		return err
	}
	if err := c.write(EncodeKeyEvent(true, keysym)); err != nil {
		return transportError("PressKey", "failed to send key down", err)
	}
	time.Sleep(c.cfg.clickHold)
	if err := c.write(EncodeKeyEvent(false, keysym)); err != nil {
		return transportError("PressKey", "failed to send key up", err)
	}
	log.Debugf("pressed keysym 0x%04x", keysym)
	return nil
}

// TypeText presses each character of text in sequence. Only Latin-1 text and
// the control characters mapped by KeysymForRune are supported.
func (c *Conn) TypeText(text string) error {
	for _, r := range text {
		keysym, err := KeysymForRune(r)
		if err != nil {
			return err
		}
		if err := c.PressKey(keysym); err != nil {
			return err
		}
	}
	return nil
}
