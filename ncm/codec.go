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
	"hash/crc32"
)

// crcSize is the length, in bytes, of the trailing CRC32-LE appended to a
// datagram in CRC mode.
const crcSize = 4

// putField writes value into dst as a little-endian field, width words
// (16-bit units) wide. width must be word (1) or dword (2); any other
// value is a programmer error and panics, matching the "any other width
// is a programmer error" contract of the wire codec.
func putField(dst []byte, width fieldWidth, value uint32) {
	switch width {
	case word:
		binary.LittleEndian.PutUint16(dst, uint16(value))
	case dword:
		binary.LittleEndian.PutUint32(dst, value)
	default:
		panic("ncm: invalid field width")
	}
}

// getField reads a little-endian field, width words wide, from src.
func getField(src []byte, width fieldWidth) uint32 {
	switch width {
	case word:
		return uint32(binary.LittleEndian.Uint16(src))
	case dword:
		return binary.LittleEndian.Uint32(src)
	default:
		panic("ncm: invalid field width")
	}
}

// bytes returns the byte width of one NDP index or length field.
func (w fieldWidth) bytes() int {
	return int(w) * 2
}

// crc32LE computes the CRC32 of data using the standard Ethernet
// polynomial, seeded and finalized with bitwise complement — the same
// construction as the Linux kernel's crc32_le(~0, data, len) ^ ~0, which
// hash/crc32's IEEE table already performs internally.
func crc32LE(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// appendCRC32 appends the little-endian CRC32 of frame to frame and
// returns the extended slice. The CRC is computed over the payload only,
// never over NCM headers.
func appendCRC32(frame []byte) []byte {
	crc := crc32LE(frame)
	var b [crcSize]byte
	binary.LittleEndian.PutUint32(b[:], crc)
	return append(frame, b[:]...)
}

// alignUp rounds length up to the next multiple of alignment (alignment
// must be a power of two).
func alignUp(length, alignment int) int {
	return (length + alignment - 1) &^ (alignment - 1)
}

// alignPad returns the number of padding bytes needed so that length+pad
// is congruent to remainder modulo alignment. egress.go is the only
// caller, always with remainder == ndpInPayloadRemainder (0 for every
// format this core advertises via NTBParameters), so this only ever
// needs to solve the IN-direction wNdpInAlignment case: for a nonzero
// remainder it rounds up to the next full alignment cycle rather than
// the minimal pad, and isn't meant to be reused for wNdpInPayloadRemainder
// values other than 0.
func alignPad(length, alignment, remainder int) int {
	return alignUp(length, alignment) + remainder - length
}
