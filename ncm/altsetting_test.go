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

type recordingLink struct {
	connects, disconnects int
}

func (r *recordingLink) Connect()    { r.connects++ }
func (r *recordingLink) Disconnect() { r.disconnects++ }

func TestSetInterfaceActivatesDataPath(t *testing.T) {
	s := New(0, 1)
	link := &recordingLink{}
	s.Link = link
	s.Notifications = &recordingTransport{}

	if err := s.SetInterface(1, dataAltActive); err != nil {
		t.Fatalf("SetInterface: %v", err)
	}

	if alt, err := s.GetInterface(1); err != nil || alt != dataAltActive {
		t.Fatalf("GetInterface = (%d, %v), want (%d, nil)", alt, err, dataAltActive)
	}
	if link.connects != 1 {
		t.Fatalf("link.connects = %d, want 1", link.connects)
	}

	if err := s.Wrap([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatalf("Wrap while active: %v", err)
	}
}

func TestSetInterfaceDeactivatesAndDropsPending(t *testing.T) {
	s := New(0, 1)
	link := &recordingLink{}
	s.Link = link
	s.Notifications = &recordingTransport{}

	if err := s.SetInterface(1, dataAltActive); err != nil {
		t.Fatal(err)
	}

	sent := false
	s.Transmit = func([]byte) { sent = true }

	if err := s.Wrap([]byte{0xaa, 0xbb}); err != nil {
		t.Fatal(err)
	}

	if err := s.SetInterface(1, 0); err != nil {
		t.Fatalf("SetInterface(alt=0): %v", err)
	}

	if link.disconnects != 1 {
		t.Fatalf("link.disconnects = %d, want 1", link.disconnects)
	}
	if sent {
		t.Fatal("pending NTB was transmitted across a data-interface teardown")
	}

	if err := s.Wrap([]byte{0x01}); err != ErrEndpointShutdown {
		t.Fatalf("Wrap after deactivation: got %v, want ErrEndpointShutdown", err)
	}
}

func TestSetInterfaceUnknownInterface(t *testing.T) {
	s := New(0, 1)

	if _, err := s.GetInterface(9); err != ErrUnknownInterface {
		t.Fatalf("GetInterface(9): got %v, want ErrUnknownInterface", err)
	}
	if err := s.SetInterface(9, 0); err != ErrUnknownInterface {
		t.Fatalf("SetInterface(9, 0): got %v, want ErrUnknownInterface", err)
	}
}
