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

// SetupData is the class-specific portion of a control transfer's Setup
// stage, already validated by the caller as addressed to this function's
// interface (bRequestType recipient/type decoding is the caller's job;
// only bRequest/wValue/wIndex/wLength reach here).
type SetupData struct {
	Request uint8
	Value   uint16
	Index   uint16
	Length  uint16
}

// HandleSetup dispatches a class-specific control request (C6).
//
// For GET-style requests it returns the reply payload directly. For
// SET-style requests that carry an OUT data stage (only
// SET_NTB_INPUT_SIZE does), it returns wantsData=true and no payload;
// the caller must read exactly int(setup.Length) bytes from the OUT
// data stage and pass them to HandleSetupData. Every other SET request
// is a single-stage control write and is applied immediately from
// setup.Value/setup.Index, matching the kernel's wValue-encoded
// SET_NTB_FORMAT/SET_CRC_MODE requests.
func (s *Session) HandleSetup(setup SetupData) (reply []byte, wantsData bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if setup.Index != uint16(s.ctrlID) {
		return nil, false, ErrUnsupportedSetup
	}

	switch setup.Request {
	case reqGetNTBParameters:
		return newNTBParameters(s.fixedInLen).Bytes(), false, nil

	case reqGetNTBFormat:
		var v [2]byte
		if s.format == NTB32 {
			binary.LittleEndian.PutUint16(v[:], 1)
		}
		return v[:], false, nil

	case reqSetNTBFormat:
		switch setup.Value {
		case 0:
			s.format = NTB16
		case 1:
			s.format = NTB32
		default:
			return nil, false, ErrUnsupportedSetup
		}
		return nil, false, nil

	case reqGetNTBInputSize:
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], s.fixedInLen)
		return v[:], false, nil

	case reqSetNTBInputSize:
		if setup.Length != 4 {
			return nil, false, ErrUnsupportedSetup
		}
		return nil, true, nil

	case reqGetMaxDatagramSize:
		var v [2]byte
		binary.LittleEndian.PutUint16(v[:], maxDatagramSize)
		return v[:], false, nil

	case reqSetMaxDatagramSize:
		// Accepted and acknowledged but not applied: this core's
		// datagram ceiling is fixed (§9, packet filters beyond
		// pass-through are out of scope; the same applies here).
		return nil, false, nil

	case reqGetCRCMode:
		var v [2]byte
		if s.crcMode {
			binary.LittleEndian.PutUint16(v[:], 1)
		}
		return v[:], false, nil

	case reqSetCRCMode:
		switch setup.Value {
		case 0:
			s.crcMode = false
		case 1:
			s.crcMode = true
		default:
			return nil, false, ErrUnsupportedSetup
		}
		return nil, false, nil

	case reqSetEthernetPacketFilter:
		// Supplemented from the original driver (§9): accepted and
		// recorded, never consulted by the data path. A host that
		// probes for CDC-ECM-style packet filtering before falling
		// back to NCM should not see a stall here.
		s.packetFilter = setup.Value
		return nil, false, nil

	default:
		return nil, false, ErrUnsupportedSetup
	}
}

// HandleSetupData completes a two-stage control request begun by
// HandleSetup with wantsData=true. Currently this is only
// SET_NTB_INPUT_SIZE.
func (s *Session) HandleSetupData(request uint8, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch request {
	case reqSetNTBInputSize:
		if len(data) != 4 {
			return ErrUnsupportedSetup
		}
		size := binary.LittleEndian.Uint32(data)
		if size < ntbInMinSize || size > ntbInMaxSize {
			return ErrUnsupportedSetup
		}
		s.fixedInLen = size
		return nil

	default:
		return ErrUnsupportedSetup
	}
}
