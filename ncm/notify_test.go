// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

import "testing"

type recordingTransport struct {
	enqueued [][]byte
	fail     bool
}

func (r *recordingTransport) Enqueue(data []byte) error {
	r.enqueued = append(r.enqueued, data)
	if r.fail {
		return ErrEndpointShutdown
	}
	return nil
}

func TestNotifySequenceSpeedThenConnect(t *testing.T) {
	s := New(0, 1)
	transport := &recordingTransport{}
	s.Notifications = transport

	s.Notify(true, SpeedHigh)

	if len(transport.enqueued) != 1 {
		t.Fatalf("got %d notifications after Notify, want 1", len(transport.enqueued))
	}
	if transport.enqueued[0][1] != notifySpeedChange {
		t.Fatalf("first notification type = %#x, want SPEED_CHANGE", transport.enqueued[0][1])
	}

	s.NotifyComplete(nil)

	if len(transport.enqueued) != 2 {
		t.Fatalf("got %d notifications after first completion, want 2", len(transport.enqueued))
	}
	if transport.enqueued[1][1] != notifyNetworkConnection {
		t.Fatalf("second notification type = %#x, want NETWORK_CONNECTION", transport.enqueued[1][1])
	}

	s.NotifyComplete(nil)

	s.mu.Lock()
	state := s.notifyState
	s.mu.Unlock()

	if state != NotifyNone {
		t.Fatalf("notifyState after sequence completes = %v, want NotifyNone", state)
	}
}

func TestNotifyFailureAbandonsSequence(t *testing.T) {
	s := New(0, 1)
	transport := &recordingTransport{fail: true}
	s.Notifications = transport

	s.Notify(true, SpeedFull)

	s.mu.Lock()
	state := s.notifyState
	inFlight := s.notifyInFlight
	s.mu.Unlock()

	if state != NotifyNone {
		t.Fatalf("notifyState after failed notification = %v, want NotifyNone", state)
	}
	if inFlight {
		t.Fatal("notifyInFlight still set after failure")
	}
}

func TestNotifyWhileInFlightDoesNotReenter(t *testing.T) {
	s := New(0, 1)
	transport := &recordingTransport{}
	s.Notifications = transport

	s.mu.Lock()
	s.notifyState = NotifyPendingSpeed
	s.notifyInFlight = true
	s.mu.Unlock()

	s.Notify(true, SpeedHigh)

	if len(transport.enqueued) != 0 {
		t.Fatalf("got %d notifications while one was already in flight, want 0", len(transport.enqueued))
	}
}
