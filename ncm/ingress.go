// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

// Unwrap decodes a single NTB received from the host on the bulk-OUT
// endpoint and returns the Ethernet datagrams it carries (C3). On any
// validation failure the entire NTB is dropped: Unwrap returns
// ErrProtocolInvalid and no datagrams, never a partial set.
//
// Unwrap only reads the session's negotiated format and CRC mode and
// takes no lock; callers must serialize it against concurrent
// SET_NTB_FORMAT/SET_CRC_MODE control requests themselves, the same way
// the bulk-OUT and control endpoints are already serialized by running
// on a single USB transfer-completion context. It is grounded on
// ncm_unwrap_ntb().
func (s *Session) Unwrap(ntb []byte) ([][]byte, error) {
	opts := optionsFor(s.format)

	if len(ntb) < opts.nthSize {
		return nil, protocolInvalid("NTB shorter than NTH")
	}

	if getField(ntb[0:4], dword) != opts.nthSign {
		return nil, protocolInvalid("NTH signature mismatch")
	}

	headerLength := int(getField(ntb[4:6], word))
	if headerLength != opts.nthSize {
		return nil, protocolInvalid("NTH header length mismatch")
	}

	blockLength := int(getField(ntb[8:8+opts.fieldWidth.bytes()], opts.fieldWidth))
	if blockLength == 0 || blockLength > len(ntb) || blockLength > ntbOutSize {
		return nil, protocolInvalid("block length out of range")
	}

	ndpIndexOff := 8 + opts.fieldWidth.bytes()
	ndpIndex := int(getField(ntb[ndpIndexOff:ndpIndexOff+opts.fieldWidth.bytes()], opts.fieldWidth))

	// Corrected bounds check: the datagram pointer table must be
	// word-aligned and must not overlap the NTH. The kernel's equivalent
	// check uses "&&" here, which lets a misaligned index with
	// index >= nth_size through; this tightens it to "||" so either
	// condition alone is disqualifying.
	if (ndpIndex%4) != 0 || ndpIndex < opts.nthSize {
		return nil, protocolInvalid("NDP index misaligned or overlaps NTH")
	}

	if ndpIndex+opts.ndpSize > blockLength || ndpIndex+opts.ndpSize > len(ntb) {
		return nil, protocolInvalid("NDP index out of range")
	}

	ndp := ntb[ndpIndex:]

	wantSign := ndpSignature(opts, s.crcMode)
	gotSign := getField(ndp[0:4], dword)
	if gotSign != wantSign {
		return nil, protocolInvalid("NDP signature mismatch")
	}

	// The DPE table must hold room for at least one real entry plus the
	// zero/zero terminator; a wLength that only covers the fixed NDP
	// header (or one entry with no terminator) is malformed.
	ndpLength := int(getField(ndp[4:6], word))
	if ndpLength < opts.ndpSize+2*opts.dpeSize || ndpLength%opts.ndplenAlign != 0 {
		return nil, protocolInvalid("NDP length too short or misaligned")
	}
	if ndpIndex+ndpLength > blockLength || ndpIndex+ndpLength > len(ntb) {
		return nil, protocolInvalid("NDP length out of range")
	}

	dpeTable := ndp[opts.ndpSize:ndpLength]
	if len(dpeTable)%opts.dpeSize != 0 {
		return nil, protocolInvalid("DPE table not a whole number of entries")
	}

	var datagrams [][]byte

	for off := 0; off+opts.dpeSize <= len(dpeTable); off += opts.dpeSize {
		idx := int(getField(dpeTable[off:off+opts.fieldWidth.bytes()], opts.fieldWidth))
		length := int(getField(dpeTable[off+opts.fieldWidth.bytes():off+opts.dpeSize], opts.fieldWidth))

		// A zero/zero entry terminates the table; anything after it is
		// ignored, matching the host-side convention of padding the
		// DPE table to wNdpInAlignment with zero entries.
		if idx == 0 && length == 0 {
			break
		}

		if idx < opts.nthSize || length == 0 || idx+length > blockLength || idx+length > len(ntb) {
			return nil, protocolInvalid("DPE index/length out of range")
		}

		frame := ntb[idx : idx+length]

		if s.crcMode {
			if len(frame) < crcSize {
				return nil, protocolInvalid("datagram shorter than CRC trailer")
			}
			payload := frame[:len(frame)-crcSize]
			wantCRC := getField(frame[len(frame)-crcSize:], dword)
			if crc32LE(payload) != wantCRC {
				return nil, protocolInvalid("datagram CRC mismatch")
			}
			frame = payload
		}

		clone := make([]byte, len(frame))
		copy(clone, frame)
		datagrams = append(datagrams, clone)
	}

	return datagrams, nil
}
