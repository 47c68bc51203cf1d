// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

import (
	"sync"
	"time"
)

// Session is the complete device-side state of one CDC-NCM function
// (C9): negotiated format and CRC mode, the in-flight outbound NTB
// accumulator, the notification sequence, and the alternate-setting
// gate that opens and closes the data path. A Session is safe for
// concurrent use; all exported methods except Unwrap take its single
// mutex.
//
// The mutex's scope is wider than the kernel struct it is grounded on:
// the kernel serializes TX/timer/notify access for free by running them
// on the same hardware tasklet and under the same spinlock region.
// time.AfterFunc runs the flush timer on its own goroutine, so this
// Session folds the egress accumulator and timer-stopping latch under
// the same lock that guards notification state, rather than modeling
// them as independently synchronized fields.
type Session struct {
	mu sync.Mutex

	// Negotiated wire format, set at construction and mutable via
	// SET_NTB_FORMAT/SET_CRC_MODE.
	format  Format
	crcMode bool

	// fixedInLen is the negotiated dwNtbInMaxSize (SET_NTB_INPUT_SIZE).
	fixedInLen uint32

	// packetFilter records SET_ETHERNET_PACKET_FILTER's wValue; never
	// consulted by the data path (§9).
	packetFilter uint16

	// Interface numbers this session was bound to, reported back by
	// notifications' wIndex. Set once at construction.
	ctrlID, dataID uint8

	// Outbound NTB aggregation (C4/C5).
	egress       egressState
	sequence     uint32
	txDropped    uint64
	flushTimer   *time.Timer
	timerStopping bool

	// FlushTimeout overrides the default flush deadline (C5). Zero means
	// defaultFlushTimeout.
	FlushTimeout time.Duration

	// Notification sequencing (C7).
	notifyState      NotifyState
	notifyInFlight   bool
	pendingConnected bool
	pendingSpeed     Speed

	// isOpen gates Wrap: true only while the data interface's active
	// alternate setting has the bulk endpoints claimed (C8). Unwrap does
	// not consult it.
	isOpen bool

	// Transmit hands a finalized outbound NTB to the bulk-IN endpoint.
	// Set once by the caller before the session is driven; invoked with
	// Session.mu held, so it must not call back into Session.
	Transmit func(ntb []byte)

	// Notifications is the interrupt-IN endpoint collaborator (C7).
	Notifications NotificationTransport

	// Link is notified as the data interface opens and closes (C8).
	Link EthernetLink
}

// New constructs a Session bound to the given control and data
// interface numbers, with NTB16/no-CRC power-on defaults (§3).
func New(ctrlID, dataID uint8) *Session {
	s := &Session{
		ctrlID:     ctrlID,
		dataID:     dataID,
		fixedInLen: ntbInDefaultSize,
	}
	s.Reset()
	return s
}

// Reset restores power-on defaults: NTB16, CRC off, default input size,
// no pending notification, data path closed. Reset does not touch
// Transmit, Notifications or Link, which are wiring, not protocol
// state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.format = NTB16
	s.crcMode = false
	s.fixedInLen = ntbInDefaultSize
	s.packetFilter = 0
	s.egress = egressState{}
	s.sequence = 0
	s.txDropped = 0
	s.timerStopping = false
	s.notifyState = NotifyNone
	s.notifyInFlight = false
	s.isOpen = false

	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
}

// TxDropped returns the count of outbound datagrams dropped for
// exceeding maxDatagramSize or failing to fit even a freshly opened
// NTB, for diagnostics.
func (s *Session) TxDropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txDropped
}

// Format returns the currently negotiated NTB format.
func (s *Session) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// CRCMode returns whether per-datagram CRC32 trailers are active.
func (s *Session) CRCMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crcMode
}
