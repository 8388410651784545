// SPDX-License-Identifier: MIT

package qtvnc

import (
	"github.com/juju/errors"
)

// X11 keysym values for the keys the touchscreen units respond to.
// Latin-1 characters map directly to their code points.
const (
	KeyBackSpace uint32 = 0xff08
	KeyTab       uint32 = 0xff09
	KeyReturn    uint32 = 0xff0d
	KeyEscape    uint32 = 0xff1b
	KeyHome      uint32 = 0xff50
	KeyLeft      uint32 = 0xff51
	KeyUp        uint32 = 0xff52
	KeyRight     uint32 = 0xff53
	KeyDown      uint32 = 0xff54
	KeyPageUp    uint32 = 0xff55
	KeyPageDown  uint32 = 0xff56
	KeyEnd       uint32 = 0xff57
	KeyDelete    uint32 = 0xffff
)

// KeysymForRune maps a character to its X11 keysym. Latin-1 code points map
// to themselves; newline, tab, and backspace map to their key equivalents.
func KeysymForRune(r rune) (uint32, error) {
	switch r {
	case '\n', '\r':
		return KeyReturn, nil
	case '\t':
		return KeyTab, nil
	case '\b':
		return KeyBackSpace, nil
	}
	if r >= 0x20 && r <= 0xff {
		return uint32(r), nil
	}
	return 0, errors.NotSupportedf("keysym for %q", r)
}
