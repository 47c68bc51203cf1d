// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

// Size limits fixed by this implementation (§3, §6). The kernel driver
// this is grounded on makes several of these runtime-negotiable; this
// core keeps the OUT-direction (host-to-device) ceiling fixed and only
// exposes the IN-direction (device-to-host) one as negotiable, via
// SET_NTB_INPUT_SIZE (§6).

const (
	// ntbOutSize is dwNtbOutMaxSize: the largest NTB this core accepts
	// from the host. Fixed, not negotiable (§6, dwNtbOutMaxSize is
	// reported but SET_NTB_INPUT_SIZE only ever affects the IN side).
	ntbOutSize = 16384

	// ntbInMinSize and ntbInMaxSize bound SET_NTB_INPUT_SIZE (§6):
	// requests outside this range are rejected with
	// ErrUnsupportedSetup.
	ntbInMinSize = 2048
	ntbInMaxSize = 4096

	// ntbInDefaultSize is dwNtbInMaxSize's power-on value, matching
	// ntbInMaxSize so a host that never issues SET_NTB_INPUT_SIZE still
	// gets full-size NTBs.
	ntbInDefaultSize = ntbInMaxSize

	// maxDatagramSize bounds a single Ethernet frame accepted into an
	// outbound NTB. 1514 is ETH_FRAME_LEN (14-byte header + 1500-byte
	// MTU payload); this core does not negotiate
	// GET/SET_MAX_DATAGRAM_SIZE beyond reporting this fixed value.
	maxDatagramSize = 1514
)
