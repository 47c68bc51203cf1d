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
	"encoding/binary"
	"testing"
)

func TestHandleSetupGetNTBParameters(t *testing.T) {
	s := New(0, 1)

	reply, wantsData, err := s.HandleSetup(SetupData{Request: reqGetNTBParameters})
	if err != nil {
		t.Fatalf("HandleSetup: %v", err)
	}
	if wantsData {
		t.Fatal("GET_NTB_PARAMETERS must not request an OUT data stage")
	}
	if len(reply) != 28 {
		t.Fatalf("reply length = %d, want 28", len(reply))
	}
	if got := binary.LittleEndian.Uint16(reply[0:2]); got != 28 {
		t.Fatalf("wLength field = %d, want 28", got)
	}
}

func TestHandleSetupSetNTBFormat(t *testing.T) {
	s := New(0, 1)

	if _, _, err := s.HandleSetup(SetupData{Request: reqSetNTBFormat, Value: 1}); err != nil {
		t.Fatalf("HandleSetup: %v", err)
	}
	if s.Format() != NTB32 {
		t.Fatalf("format after SET_NTB_FORMAT(1) = %v, want NTB32", s.Format())
	}

	if _, _, err := s.HandleSetup(SetupData{Request: reqSetNTBFormat, Value: 7}); err != ErrUnsupportedSetup {
		t.Fatalf("got %v, want ErrUnsupportedSetup", err)
	}
}

func TestHandleSetupSetCRCMode(t *testing.T) {
	s := New(0, 1)

	if _, _, err := s.HandleSetup(SetupData{Request: reqSetCRCMode, Value: 1}); err != nil {
		t.Fatalf("HandleSetup: %v", err)
	}
	if !s.CRCMode() {
		t.Fatal("CRC mode not enabled after SET_CRC_MODE(1)")
	}
}

func TestHandleSetupSetNTBInputSizeTwoStage(t *testing.T) {
	s := New(0, 1)

	_, wantsData, err := s.HandleSetup(SetupData{Request: reqSetNTBInputSize, Length: 4})
	if err != nil {
		t.Fatalf("HandleSetup: %v", err)
	}
	if !wantsData {
		t.Fatal("SET_NTB_INPUT_SIZE must request an OUT data stage")
	}

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 3072)

	if err := s.HandleSetupData(reqSetNTBInputSize, data); err != nil {
		t.Fatalf("HandleSetupData: %v", err)
	}

	reply, _, err := s.HandleSetup(SetupData{Request: reqGetNTBInputSize})
	if err != nil {
		t.Fatalf("HandleSetup GET_NTB_INPUT_SIZE: %v", err)
	}
	if got := binary.LittleEndian.Uint32(reply); got != 3072 {
		t.Fatalf("dwNtbInMaxSize = %d, want 3072", got)
	}
}

func TestHandleSetupDataRejectsOutOfRangeInputSize(t *testing.T) {
	s := New(0, 1)

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 1)

	if err := s.HandleSetupData(reqSetNTBInputSize, data); err != ErrUnsupportedSetup {
		t.Fatalf("got %v, want ErrUnsupportedSetup", err)
	}
}

func TestHandleSetupWrongInterfaceStalls(t *testing.T) {
	s := New(0, 1)

	_, _, err := s.HandleSetup(SetupData{Request: reqGetNTBParameters, Index: 5})
	if err != ErrUnsupportedSetup {
		t.Fatalf("got %v, want ErrUnsupportedSetup", err)
	}
}

func TestHandleSetupUnknownRequestStalls(t *testing.T) {
	s := New(0, 1)

	if _, _, err := s.HandleSetup(SetupData{Request: 0xff}); err != ErrUnsupportedSetup {
		t.Fatalf("got %v, want ErrUnsupportedSetup", err)
	}
}

func TestHandleSetupPacketFilterAcceptedButInert(t *testing.T) {
	s := New(0, 1)

	if _, _, err := s.HandleSetup(SetupData{Request: reqSetEthernetPacketFilter, Value: 0x0f}); err != nil {
		t.Fatalf("HandleSetup: %v", err)
	}
	if s.packetFilter != 0x0f {
		t.Fatalf("packetFilter = %#x, want 0xf", s.packetFilter)
	}
}
