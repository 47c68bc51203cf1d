// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

import "errors"

// ErrUnknownInterface is returned by SetInterface/GetInterface for an
// interface number that is neither this session's control nor data
// interface.
var ErrUnknownInterface = errors.New("ncm: unknown interface")

// dataAltActive is the data interface's alternate setting with the
// bulk endpoints claimed. Alt 0 is the idle setting: no bulk transfers,
// matching the standard CDC data-class convention this is grounded on.
const dataAltActive = 1

// SetInterface implements SET_INTERFACE (C8): altsetting changes to the
// data interface gate Wrap and drive the Ethernet link up or down. The control interface has no alternate settings; alt must be 0.
func (s *Session) SetInterface(intf, alt uint8) error {
	switch intf {
	case s.ctrlID:
		if alt != 0 {
			return ErrUnsupportedSetup
		}
		return nil

	case s.dataID:
		switch alt {
		case 0:
			s.resetProtocolDefaultsIfClaimed()
			s.disable()
			return nil
		case dataAltActive:
			s.resetProtocolDefaultsIfClaimed()
			s.enable()
			return nil
		default:
			return ErrUnsupportedSetup
		}

	default:
		return ErrUnknownInterface
	}
}

// GetInterface implements GET_INTERFACE.
func (s *Session) GetInterface(intf uint8) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch intf {
	case s.ctrlID:
		return 0, nil
	case s.dataID:
		if s.isOpen {
			return dataAltActive, nil
		}
		return 0, nil
	default:
		return 0, ErrUnknownInterface
	}
}

// resetProtocolDefaultsIfClaimed reverts the negotiated wire format, CRC
// mode, input size and packet filter to their power-on defaults whenever
// a SET_INTERFACE(dataID, *) arrives while the bulk endpoints are
// currently claimed — whether the transition re-activates the data
// interface or idles it. This matches the kernel's ncm_reset_values()
// call inside ncm_set_alt(), which runs on every data-interface
// altsetting change while the endpoints were enabled, not only on
// teardown: a host that re-negotiates NTB32/CRC, then cycles
// SET_INTERFACE without ever going through unbind, must see NTB16/CRC
// off again on the other side.
func (s *Session) resetProtocolDefaultsIfClaimed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen {
		return
	}

	s.format = NTB16
	s.crcMode = false
	s.fixedInLen = ntbInDefaultSize
	s.packetFilter = 0
}

// enable claims the data interface's bulk endpoints: the data path
// opens, the flush timer is released to run again, and the link and
// notification sequence are told the connection is up.
func (s *Session) enable() {
	s.mu.Lock()
	s.isOpen = true
	s.timerStopping = false
	s.egress = egressState{}
	link := s.Link
	s.mu.Unlock()

	if link != nil {
		link.Connect()
	}

	s.Notify(true, SpeedHigh)
}

// disable is SetInterface(dataID, 0) and Disable's shared
// implementation: it tears down the data path, stopping the flush
// timer permanently (until the next enable) and dropping whatever NTB
// was mid-construction. It leaves the negotiated format, CRC mode and
// input size as they are; SetInterface reverts those separately through
// resetProtocolDefaultsIfClaimed.
func (s *Session) disable() {
	s.stopTimer()

	s.mu.Lock()
	s.isOpen = false
	s.egress = egressState{}
	link := s.Link
	s.mu.Unlock()

	if link != nil {
		link.Disconnect()
	}

	s.Notify(false, 0)
}

// Disable tears down the data path unconditionally, for use when the
// function is unbound or the bus is reset. It performs the same teardown
// as SetInterface(dataID, 0) without requiring the caller to know the
// data interface's number, but unlike SetInterface it does not revert
// the negotiated format, CRC mode or input size.
func (s *Session) Disable() {
	s.disable()
}
