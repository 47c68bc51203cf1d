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

func TestUnwrapTooShortForHeader(t *testing.T) {
	s := New(0, 1)

	if _, err := s.Unwrap(make([]byte, 4)); err != ErrProtocolInvalid {
		t.Fatalf("got %v, want ErrProtocolInvalid", err)
	}
}

func TestUnwrapBadSignature(t *testing.T) {
	s, sent := openSession(NTB16, false)

	if err := s.Wrap([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatal(err)
	}
	if err := s.Wrap(nil); err != nil {
		t.Fatal(err)
	}

	ntb := (*sent)[0]
	ntb[0] ^= 0xff

	if _, err := s.Unwrap(ntb); err != ErrProtocolInvalid {
		t.Fatalf("got %v, want ErrProtocolInvalid", err)
	}
}

func TestUnwrapMisalignedNdpIndexRejected(t *testing.T) {
	s, sent := openSession(NTB16, false)

	if err := s.Wrap([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatal(err)
	}
	if err := s.Wrap(nil); err != nil {
		t.Fatal(err)
	}

	ntb := (*sent)[0]
	ndpIndex := getField(ntb[10:12], word)
	putField(ntb[10:12], word, ndpIndex+1)

	if _, err := s.Unwrap(ntb); err != ErrProtocolInvalid {
		t.Fatalf("got %v, want ErrProtocolInvalid", err)
	}
}

func TestUnwrapCRCMismatchDropsWholeNTB(t *testing.T) {
	s, sent := openSession(NTB16, true)

	if err := s.Wrap([]byte{0xaa, 0xbb, 0xcc, 0xdd}); err != nil {
		t.Fatal(err)
	}
	if err := s.Wrap(nil); err != nil {
		t.Fatal(err)
	}

	ntb := (*sent)[0]
	// Corrupt a byte inside the datagram's own CRC trailer, not the NDP
	// table past it, so this exercises the CRC check specifically.
	ntb[19] ^= 0xff

	frames, err := s.Unwrap(ntb)
	if err != ErrProtocolInvalid {
		t.Fatalf("got %v, want ErrProtocolInvalid", err)
	}
	if frames != nil {
		t.Fatalf("got %d datagrams on a dropped NTB, want none", len(frames))
	}
}

func TestUnwrapWrongFormatSignatureRejected(t *testing.T) {
	s, sent := openSession(NTB16, false)

	if err := s.Wrap([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatal(err)
	}
	if err := s.Wrap(nil); err != nil {
		t.Fatal(err)
	}

	ntb := (*sent)[0]

	s2 := New(0, 1)
	s2.isOpen = true
	s2.format = NTB32

	if _, err := s2.Unwrap(ntb); err != ErrProtocolInvalid {
		t.Fatalf("got %v, want ErrProtocolInvalid", err)
	}
}
