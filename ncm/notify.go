// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

import "encoding/binary"

// NotifyState tracks the interrupt-endpoint notification sequence
// (C7): a SPEED_CHANGE notification always precedes the
// NETWORK_CONNECTION notification it accompanies, and only one
// notification is ever in flight at a time.
type NotifyState int

const (
	// NotifyNone: no notification owed and none in flight.
	NotifyNone NotifyState = iota

	// NotifyPendingSpeed: a SPEED_CHANGE notification must be sent next.
	NotifyPendingSpeed

	// NotifyPendingConnect: SPEED_CHANGE is in flight or done; a
	// NETWORK_CONNECTION notification must follow.
	NotifyPendingConnect
)

// Speed is a notified link rate, in bits per second, for SPEED_CHANGE.
type Speed uint32

// Fixed link rates this core reports, matching the kernel driver's
// bitrate constants for its two transport speed classes.
const (
	SpeedHigh Speed = 13 * 512 * 8 * 8000
	SpeedFull Speed = 19 * 64 * 8000
)

// NotificationTransport is the interrupt-IN endpoint collaborator:
// Enqueue submits a notification packet and must return promptly
// (actual completion is reported later via NotifyComplete), matching
// the kernel's usb_ep_queue/complete split.
type NotificationTransport interface {
	Enqueue(data []byte) error
}

// Notify arms the notification sequence after a link state change:
// NotifyState unconditionally resets to NotifyPendingSpeed, even if a
// NETWORK_CONNECTION notification was already pending or in flight, and
// doNotify is kicked off immediately if nothing is already in flight.
// A second Notify call before the first sequence finishes therefore
// replays SPEED_CHANGE ahead of NETWORK_CONNECTION; that replay is
// intentional, not a bug, and must not be guarded against. Connected
// selects which NETWORK_CONNECTION status will eventually be sent;
// speed selects the SPEED_CHANGE payload.
func (s *Session) Notify(connected bool, speed Speed) {
	s.mu.Lock()
	s.pendingConnected = connected
	s.pendingSpeed = speed
	s.notifyState = NotifyPendingSpeed
	already := s.notifyInFlight
	s.mu.Unlock()

	if !already {
		s.doNotify()
	}
}

// doNotify builds and submits the next owed notification packet,
// advancing NotifyState (PENDING_SPEED -> PENDING_CONNECT -> NONE) as it
// builds each one. The lock is released around the actual Enqueue call,
// mirroring the kernel's spin_unlock/usb_ep_queue/spin_lock dance:
// Enqueue may block or reenter session state via NotifyComplete from
// another goroutine.
func (s *Session) doNotify() {
	s.mu.Lock()

	if s.notifyState == NotifyNone || s.notifyInFlight {
		s.mu.Unlock()
		return
	}

	var payload []byte
	switch s.notifyState {
	case NotifyPendingSpeed:
		payload = speedChangeNotification(s.pendingSpeed)
		s.notifyState = NotifyPendingConnect
	case NotifyPendingConnect:
		payload = networkConnectionNotification(s.pendingConnected)
		s.notifyState = NotifyNone
	}
	binary.LittleEndian.PutUint16(payload[4:6], uint16(s.ctrlID))

	s.notifyInFlight = true
	transport := s.Notifications
	s.mu.Unlock()

	if transport == nil {
		s.NotifyComplete(ErrEndpointShutdown)
		return
	}

	if err := transport.Enqueue(payload); err != nil {
		s.NotifyComplete(err)
	}
}

// NotifyComplete reports the outcome of the notification packet most
// recently submitted by doNotify. On success it kicks off the next owed
// notification, if NotifyState is not NotifyNone (doNotify has already
// advanced the state); on error it resets to NotifyNone, matching the
// kernel's "give up on this notification sequence, a future link event
// will restart it" behavior.
func (s *Session) NotifyComplete(err error) {
	s.mu.Lock()
	s.notifyInFlight = false

	if err != nil {
		s.notifyState = NotifyNone
		s.mu.Unlock()
		return
	}

	again := s.notifyState != NotifyNone
	s.mu.Unlock()

	if again {
		s.doNotify()
	}
}

func speedChangeNotification(speed Speed) []byte {
	hdr := notificationHeader{
		RequestType:      notificationRequestType,
		NotificationType: notifySpeedChange,
		Length:           8,
	}
	out := hdr.bytes()

	var rates [8]byte
	binary.LittleEndian.PutUint32(rates[0:4], uint32(speed)) // upstream
	binary.LittleEndian.PutUint32(rates[4:8], uint32(speed)) // downstream

	return append(out, rates[:]...)
}

func networkConnectionNotification(connected bool) []byte {
	hdr := notificationHeader{
		RequestType:      notificationRequestType,
		NotificationType: notifyNetworkConnection,
		Length:           0,
	}
	if connected {
		hdr.Value = 1
	}
	return hdr.bytes()
}
