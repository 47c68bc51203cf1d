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
	"errors"
	"net"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/buffer"
	"gvisor.dev/gvisor/pkg/tcpip/link/channel"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
)

// GvisorLink adapts a gVisor channel.Endpoint to EthernetLink and to the
// per-datagram push/pull shape Session.Unwrap/Wrap deal in.
//
// This generalizes the single-frame-per-USB-transfer CDC-ECM adapter it
// is grounded on to NCM's framing: one NTB carries many complete
// Ethernet frames, so there is no cross-call reassembly buffer here —
// each datagram Unwrap returns is already a complete frame, injected
// whole, and each Read() from the link becomes one datagram appended to
// the outbound NTB rather than one USB transfer.
type GvisorLink struct {
	// Host is the Ethernet destination address this adapter stamps onto
	// frames read from the link (the peer the device-side stack
	// believes it is talking to).
	Host net.HardwareAddr

	// Device is the Ethernet source address for frames read from the
	// link.
	Device net.HardwareAddr

	// Link is the gVisor endpoint frames are injected into and read
	// from.
	Link *channel.Endpoint

	up bool
}

// Connect marks the link up. gVisor's channel.Endpoint has no explicit
// link-state API; this core tracks it locally so RxDatagram/TxDatagram
// can refuse to operate while the data interface is closed (C8).
func (l *GvisorLink) Connect() {
	l.up = true
}

// Disconnect marks the link down.
func (l *GvisorLink) Disconnect() {
	l.up = false
}

// errLinkDown is returned by RxDatagram/TxDatagram while Disconnect has
// not been followed by Connect.
var errLinkDown = errors.New("ncm: link down")

// RxDatagram delivers one inbound Ethernet frame, as decoded by
// Session.Unwrap, into the network stack.
func (l *GvisorLink) RxDatagram(frame []byte) error {
	if !l.up {
		return errLinkDown
	}
	if len(frame) < 14 {
		return ErrProtocolInvalid
	}

	hdr := buffer.NewViewFromBytes(frame[0:14])
	proto := tcpip.NetworkProtocolNumber(binary.BigEndian.Uint16(frame[12:14]))
	payload := buffer.NewViewFromBytes(frame[14:])

	pkt := &stack.PacketBuffer{
		LinkHeader: hdr,
		Data:       payload.ToVectorisedView(),
	}

	l.Link.InjectInbound(proto, pkt)

	return nil
}

// TxDatagram pulls one outbound Ethernet frame from the network stack,
// if one is queued, ready to hand to Session.Wrap. ok is false when
// nothing is pending.
func (l *GvisorLink) TxDatagram() (frame []byte, ok bool) {
	if !l.up {
		return nil, false
	}

	info, valid := l.Link.Read()
	if !valid {
		return nil, false
	}

	hdr := info.Pkt.Header.View()
	payload := info.Pkt.Data.ToView()

	proto := make([]byte, 2)
	binary.BigEndian.PutUint16(proto, uint16(info.Proto))

	frame = append(frame, l.Host...)
	frame = append(frame, l.Device...)
	frame = append(frame, proto...)
	frame = append(frame, hdr...)
	frame = append(frame, payload...)

	return frame, true
}
