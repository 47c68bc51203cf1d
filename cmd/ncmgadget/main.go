// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command ncmgadget wires an ncm.Session to a gVisor network stack and a
// pair of byte-stream endpoints, demonstrating the collaborator wiring
// the ncm package expects from its caller. USB enumeration, descriptor
// construction and endpoint I/O are hardware- and controller-specific
// and are left to that caller; this command stands in for them with a
// Transport interface so the wiring can be read (and compiled) without
// a particular USB gadget controller driver.
package main

import (
	"log"
	"net"
	"time"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/link/channel"
	"gvisor.dev/gvisor/pkg/tcpip/network/arp"
	"gvisor.dev/gvisor/pkg/tcpip/network/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
	"gvisor.dev/gvisor/pkg/tcpip/transport/icmp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/tcp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/udp"

	"github.com/usbarmory/tamago-ncm/ncm"
)

const (
	hostMAC   = "1a:55:89:a2:69:42"
	deviceMAC = "1a:55:89:a2:69:41"
	deviceIP  = "10.0.0.1"
	mtu       = 1500
)

// Transport is the bulk endpoint pair a real gadget controller driver
// provides. Rx delivers NTBs received from the host; Send submits an
// NTB for transmission. A controller-backed implementation queues Send
// on the bulk-IN endpoint and calls Rx from the bulk-OUT completion
// handler.
type Transport interface {
	Rx() <-chan []byte
	Send(ntb []byte)
}

// nullNotifications discards notifications, standing in for a real
// interrupt-IN endpoint in this wiring demonstration.
type nullNotifications struct{}

func (nullNotifications) Enqueue(data []byte) error { return nil }

func buildStack(linkAddr tcpip.LinkAddress) (*stack.Stack, *channel.Endpoint) {
	s := stack.New(stack.Options{
		NetworkProtocols: []stack.NetworkProtocol{
			ipv4.NewProtocol(),
			arp.NewProtocol(),
		},
		TransportProtocols: []stack.TransportProtocol{
			tcp.NewProtocol(),
			udp.NewProtocol(),
			icmp.NewProtocol4(),
		},
	})

	ep := channel.New(256, mtu, linkAddr)

	const nic = tcpip.NICID(1)
	if err := s.CreateNIC(nic, ep); err != nil {
		log.Fatalf("ncmgadget: create NIC: %v", err)
	}

	addr := tcpip.Address(net.ParseIP(deviceIP)).To4()
	if err := s.AddAddress(nic, arp.ProtocolNumber, arp.ProtocolAddress); err != nil {
		log.Fatalf("ncmgadget: add ARP address: %v", err)
	}
	if err := s.AddAddress(nic, ipv4.ProtocolNumber, addr); err != nil {
		log.Fatalf("ncmgadget: add IPv4 address: %v", err)
	}

	subnet, err := tcpip.NewSubnet("\x00\x00\x00\x00", "\x00\x00\x00\x00")
	if err != nil {
		log.Fatalf("ncmgadget: subnet: %v", err)
	}
	s.SetRouteTable([]tcpip.Route{{Destination: subnet, NIC: nic}})

	return s, ep
}

// Run drives one Session against a Transport: it pumps inbound NTBs
// through Unwrap into the network stack, and polls the network stack for
// outbound datagrams to Wrap and transmit. Run does not return: the
// outbound polling loop has no exit, and closing the Rx channel stops
// only the inbound pump.
func Run(session *ncm.Session, link *ncm.GvisorLink, t Transport) {
	session.Transmit = t.Send

	go func() {
		for ntb := range t.Rx() {
			frames, err := session.Unwrap(ntb)
			if err != nil {
				log.Printf("ncmgadget: dropped inbound NTB: %v", err)
				continue
			}
			for _, frame := range frames {
				if err := link.RxDatagram(frame); err != nil {
					log.Printf("ncmgadget: dropped inbound datagram: %v", err)
				}
			}
		}
	}()

	for {
		frame, ok := link.TxDatagram()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		if err := session.Wrap(frame); err != nil {
			log.Printf("ncmgadget: dropped outbound datagram: %v", err)
		}
	}
}

func main() {
	deviceAddr, err := tcpip.ParseMACAddress(deviceMAC)
	if err != nil {
		log.Fatalf("ncmgadget: parse device MAC: %v", err)
	}

	_, channelEP := buildStack(deviceAddr)

	link := &ncm.GvisorLink{
		Host:   mustParseMAC(hostMAC),
		Device: mustParseMAC(deviceMAC),
		Link:   channelEP,
	}

	session := ncm.New(0, 1)
	session.Link = link
	session.Notifications = nullNotifications{}

	log.Printf("ncmgadget: session ready, format=%s crc=%v", session.Format(), session.CRCMode())

	// Run(session, link, someControllerTransport) is left to the real
	// gadget controller integration; USB endpoint I/O is out of scope
	// here.
}

func mustParseMAC(s string) net.HardwareAddr {
	mac, err := net.ParseMAC(s)
	if err != nil {
		log.Fatalf("ncmgadget: parse MAC %q: %v", s, err)
	}
	return mac
}
