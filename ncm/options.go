// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

// Format selects one of the two NTB datagram-pointer-table encodings
// negotiated with GET/SET_NTB_FORMAT.
type Format int

const (
	// NTB16 uses 16-bit NDP index/length fields. This is the power-on
	// default.
	NTB16 Format = iota

	// NTB32 uses 32-bit NDP index/length fields, required for NTBs
	// larger than 64KB.
	NTB32
)

func (f Format) String() string {
	if f == NTB32 {
		return "NTB32"
	}
	return "NTB16"
}

// fieldWidth is the width, in 16-bit words, of an NDP index or length
// field: 1 for NTB16, 2 for NTB32. Encodings and decodings below only
// accept these two widths; any other value is a programmer error.
type fieldWidth int

const (
	word  fieldWidth = 1
	dword fieldWidth = 2
)

// parserOptions is the immutable, per-format description of NTB field
// layout (C1). The two instances below are the only values ever used;
// callers select between them with optionsFor and never branch on
// format inside the hot ingress/egress loops.
type parserOptions struct {
	format Format

	// nthSign is the NCM Transfer Header dwSignature.
	nthSign uint32

	// ndpSignBase is the NDP dwSignature with the CRC-mode bit (§3,
	// bit 24 / 0x01000000, the ASCII '0' vs '1' in "NCM0"/"NCM1") clear.
	// ndpSignature() sets or clears that bit from the current CRC mode.
	ndpSignBase uint32

	nthSize     int
	ndpSize     int
	dpeSize     int
	ndplenAlign int

	// fieldWidth is the width of one (d)wDatagramIndex or
	// (d)wDatagramLength field, and of (d)wBlockLength / (d)wNdpIndex
	// in the NTH.
	fieldWidth fieldWidth
}

// NTH layout, both formats: dwSignature(4) wHeaderLength(2) wSequence(2)
// then BlockLength and NdpIndex, each fieldWidth words wide.
const nthFixedPrefix = 4 + 2 + 2

var ntb16Options = parserOptions{
	format:      NTB16,
	nthSign:     0x484d434e, // "NCMH" little-endian
	ndpSignBase: 0x304d434e, // "NCM0" little-endian, CRC bit clear
	nthSize:     12,
	ndpSize:     8,
	dpeSize:     4,
	ndplenAlign: 4,
	fieldWidth:  word,
}

var ntb32Options = parserOptions{
	format:      NTB32,
	nthSign:     0x686d636e, // "ncmh" little-endian
	ndpSignBase: 0x306d636e, // "ncm0" little-endian, CRC bit clear
	nthSize:     16,
	ndpSize:     16,
	dpeSize:     8,
	ndplenAlign: 8,
	fieldWidth:  dword,
}

// optionsFor returns the parser-options record for the given format.
func optionsFor(f Format) *parserOptions {
	if f == NTB32 {
		return &ntb32Options
	}
	return &ntb16Options
}

// ndpHdrCRCMask is the bit a CRC-mode session sets in its NDP signature,
// turning the trailing ASCII digit of "NCM0"/"ncm0" into "NCM1"/"ncm1".
const ndpHdrCRCMask = 0x01000000

func ndpSignature(opts *parserOptions, crc bool) uint32 {
	sign := opts.ndpSignBase &^ ndpHdrCRCMask
	if crc {
		sign |= ndpHdrCRCMask
	}
	return sign
}
