// SPDX-License-Identifier: MIT

package qtvnc

import (
	"os"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("qtvnc")

// ConfigureLogging sets the package log level and format. Debug output
// (per-message wire traffic, handshake phases) is enabled when
// QTVNC_LOGLEVEL=DEBUG.
func ConfigureLogging() {
	if os.Getenv("QTVNC_LOGLEVEL") == "DEBUG" {
		logging.SetLevel(logging.DEBUG, "qtvnc")
	} else {
		logging.SetLevel(logging.INFO, "qtvnc")
	}
	logging.SetFormatter(logging.MustStringFormatter("%{level:.1s}%{time:0102 15:04:05.999999} %{shortfile}] %{message}"))
}
