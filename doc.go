// SPDX-License-Identifier: MIT

// Package qtvnc implements a minimal RFB (VNC) client for Qt Embedded Linux
// VNC servers as found on small industrial touchscreen units.
//
// These servers deviate from mainstream RFB implementations in two ways that
// shape the whole design:
//
//   - they drop the TCP session as soon as they receive a non-incremental
//     framebuffer update request, and
//   - they do not reliably serve more than one framebuffer capture per
//     session.
//
// The client therefore never sends a non-incremental request (on a freshly
// opened connection an incremental request still yields the full screen,
// because the server has no baseline to diff against) and performs exactly
// one capture or input operation per connection. Use Client, which opens a
// fresh connection for every operation and closes it unconditionally:
//
//	client := qtvnc.New("192.168.4.82", 5900)
//
//	img, err := client.CaptureScreen(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Each of these runs over its own connection.
//	client.MoveMouse(ctx, 240, 136)
//	client.Click(ctx, 240, 136, 1)
//	client.PressKey(ctx, qtvnc.KeyReturn)
//
// Callers that need several operations against the same unit should
// serialize them; the server hosts a single display session.
//
// Only unauthenticated sessions and the Raw encoding are supported.
// Compressed encodings, password authentication, and resizable or
// multi-monitor displays are out of scope.
package qtvnc
