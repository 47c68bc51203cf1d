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
	"bytes"
	"encoding/binary"
)

// Wire-level constants for the data this core emits on the control and
// interrupt pipes (§6). Endpoint/interface/string descriptor
// *construction* is out of scope (external enumeration plumbing); these
// are the payloads the class dispatcher and notification engine produce.

// Class-specific request codes (USB CDC-NCM, "Table 6-8: NCM Class
// Specific Request Codes").
const (
	reqGetNTBParameters     = 0x80
	reqGetNetAddress        = 0x81
	reqSetNetAddress        = 0x82
	reqGetNTBFormat         = 0x83
	reqSetNTBFormat         = 0x84
	reqGetNTBInputSize      = 0x85
	reqSetNTBInputSize      = 0x86
	reqGetMaxDatagramSize   = 0x87
	reqSetMaxDatagramSize   = 0x88
	reqGetCRCMode           = 0x89
	reqSetCRCMode           = 0x8a
	reqSetEthernetPacketFilter = 0x43 // shared with CDC-ECM, §9
)

// Notification types carried over the interrupt endpoint (USB CDC 1.2).
const (
	notifyNetworkConnection = 0x00
	notifySpeedChange       = 0x2a
)

// NCM_STATUS_BYTECOUNT: interrupt-endpoint wMaxPacketSize, sized to hold
// a SPEED_CHANGE notification (8-byte header + 8 bytes of up/down rate)
// in a single packet.
const notifyStatusByteCount = 16

// NTBParameters is the GET_NTB_PARAMETERS reply payload (§6). Every field
// here is fixed by this implementation; only dwNtbInMaxSize changes at
// runtime, and it does so via SET_NTB_INPUT_SIZE, not by mutating this
// struct (the struct is emitted once per GET, rebuilt from Session state).
type NTBParameters struct {
	Length                 uint16
	NtbFormatsSupported    uint16
	NtbInMaxSize           uint32
	NdpInDivisor           uint16
	NdpInPayloadRemainder  uint16
	NdpInAlignment         uint16
	Reserved               uint16
	NtbOutMaxSize          uint32
	NdpOutDivisor          uint16
	NdpOutPayloadRemainder uint16
	NdpOutAlignment        uint16
	NtbOutMaxDatagrams     uint16
}

// Bytes converts NTBParameters to its little-endian wire format.
func (p *NTBParameters) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, p)
	return buf.Bytes()
}

// Fixed NTB/NDP geometry for the device-to-host (IN) direction, per the
// NTB parameter block in §6. These are independent of NTB16 vs NTB32: the
// egress aggregator (C4) always builds IN-direction NTBs to this layout.
const (
	ndpInDivisor          = 4
	ndpInPayloadRemainder = 0
	ndpInAlignment        = 4
)

// newNTBParameters builds the current GET_NTB_PARAMETERS reply for a
// session, reflecting its negotiated dwNtbInMaxSize.
func newNTBParameters(fixedInLen uint32) *NTBParameters {
	return &NTBParameters{
		Length:                 28,
		NtbFormatsSupported:    1, // bit 0: NTB16 always supported; bit1 NTB32 implied by format switch
		NtbInMaxSize:           fixedInLen,
		NdpInDivisor:           ndpInDivisor,
		NdpInPayloadRemainder:  ndpInPayloadRemainder,
		NdpInAlignment:         ndpInAlignment,
		NtbOutMaxSize:          ntbOutSize,
		NdpOutDivisor:          4,
		NdpOutPayloadRemainder: 2,
		NdpOutAlignment:        4,
		NtbOutMaxDatagrams:     0,
	}
}

// notificationHeader is the USB CDC 1.2 notification envelope (8 bytes),
// common to NETWORK_CONNECTION and SPEED_CHANGE.
type notificationHeader struct {
	RequestType      uint8
	NotificationType uint8
	Value            uint16
	Index            uint16
	Length           uint16
}

const notificationHeaderSize = 8

// notificationRequestType is bmRequestType for class notifications:
// direction IN, type CLASS, recipient INTERFACE.
const notificationRequestType = 0xa1

func (h *notificationHeader) bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, h)
	return buf.Bytes()
}
