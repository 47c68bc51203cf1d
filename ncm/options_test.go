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

func TestOptionsForFormat(t *testing.T) {
	if opts := optionsFor(NTB16); opts.format != NTB16 || opts.fieldWidth != word {
		t.Fatalf("optionsFor(NTB16) = %+v", opts)
	}

	if opts := optionsFor(NTB32); opts.format != NTB32 || opts.fieldWidth != dword {
		t.Fatalf("optionsFor(NTB32) = %+v", opts)
	}
}

func TestNdpSignatureTogglesCRCBit(t *testing.T) {
	opts := optionsFor(NTB16)

	plain := ndpSignature(opts, false)
	crc := ndpSignature(opts, true)

	if plain == crc {
		t.Fatal("CRC and non-CRC signatures must differ")
	}
	if plain&ndpHdrCRCMask != 0 {
		t.Fatalf("non-CRC signature has CRC bit set: %#x", plain)
	}
	if crc&ndpHdrCRCMask == 0 {
		t.Fatalf("CRC signature missing CRC bit: %#x", crc)
	}
	if plain|ndpHdrCRCMask != crc {
		t.Fatalf("CRC signature differs from plain by more than the CRC bit: plain=%#x crc=%#x", plain, crc)
	}
}

func TestFormatString(t *testing.T) {
	if NTB16.String() != "NTB16" {
		t.Fatalf("NTB16.String() = %q", NTB16.String())
	}
	if NTB32.String() != "NTB32" {
		t.Fatalf("NTB32.String() = %q", NTB32.String())
	}
}
