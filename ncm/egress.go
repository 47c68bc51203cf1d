// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

// maxDatagramsPerNDP bounds the number of datagram pointer entries this
// core will pack into one NDP before forcing a finalize-and-transmit,
// independent of whether the byte budget would allow more. 32 matches
// the fixed-size NDP table the kernel driver this is grounded on
// pre-allocates per NTB.
const maxDatagramsPerNDP = 32

// dpEntry is one accumulated datagram-pointer-table row, recorded in
// byte units relative to the eventual NTB, not yet byte-encoded: the
// encoding happens once, at finalize, once BlockLength is known.
type dpEntry struct {
	index  int
	length int
}

// egressState is the accumulator for the NTB currently being built for
// transmission (C4). It lives embedded in Session and is guarded by
// Session.mu along with the flush timer fields it interacts with.
type egressState struct {
	body    []byte
	dpes    []dpEntry
	opts    *parserOptions
	maxSize int
}

// openNTB starts a fresh outbound NTB: the body begins with nthSize
// zero bytes reserved for the NTH, back-patched at finalize.
func (s *Session) openNTB() {
	opts := optionsFor(s.format)
	s.egress = egressState{
		body:    make([]byte, opts.nthSize),
		opts:    opts,
		maxSize: int(s.fixedInLen),
	}
}

// ndpTableSize returns the byte size of the NDP this egress state would
// finalize to: fixed header, one DPE per accumulated datagram plus one
// zero/zero terminator, rounded up to the format's NDP length alignment.
func (e *egressState) ndpTableSize() int {
	raw := e.opts.ndpSize + (len(e.dpes)+1)*e.opts.dpeSize
	return alignUp(raw, e.opts.ndplenAlign)
}

// fits reports whether appending a frame of the given post-CRC length
// (including its alignment pad) would keep the NTB within maxSize once
// the NDP is also accounted for.
func (e *egressState) fits(frameLen int) bool {
	if len(e.dpes) >= maxDatagramsPerNDP {
		return false
	}
	bodyStart := alignPad(len(e.body), ndpInAlignment, ndpInPayloadRemainder) + len(e.body)
	projected := bodyStart + frameLen
	projected = alignUp(projected, ndpInAlignment)
	// the NDP grows by this frame's DPE on top of the entries already
	// recorded and the zero/zero terminator.
	ndpSize := alignUp(e.opts.ndpSize+(len(e.dpes)+2)*e.opts.dpeSize, e.opts.ndplenAlign)
	return projected+ndpSize <= e.maxSize
}

// appendDatagram pads the body to the IN-direction alignment/remainder
// contract, records a DPE for the upcoming frame, and appends it.
func (e *egressState) appendDatagram(frame []byte) {
	pad := alignPad(len(e.body), ndpInAlignment, ndpInPayloadRemainder)
	e.body = append(e.body, make([]byte, pad)...)

	idx := len(e.body)
	e.body = append(e.body, frame...)
	e.dpes = append(e.dpes, dpEntry{index: idx, length: len(frame)})
}

// finalize back-patches the NTH and appends the NDP, returning the
// complete NTB ready for the bulk-IN endpoint. It does not reset the
// egress accumulator; callers must follow with openNTB before the next
// append.
func (e *egressState) finalize(s *Session) []byte {
	opts := e.opts

	ndpPad := alignPad(len(e.body), ndpInAlignment, ndpInPayloadRemainder)
	ndpIndex := len(e.body) + ndpPad
	ndpSize := e.ndpTableSize()

	blockLength := ndpIndex + ndpSize

	ntb := make([]byte, 0, blockLength)
	ntb = append(ntb, e.body...)
	ntb = append(ntb, make([]byte, ndpPad)...)

	ndp := make([]byte, opts.ndpSize)
	putField(ndp[0:4], dword, ndpSignature(opts, s.crcMode))
	putField(ndp[4:6], word, uint32(ndpSize))
	// next-NDP-index and any format-specific reserved fields stay zero:
	// this core never chains multiple NDPs off one NTB.

	dpeTable := make([]byte, ndpSize-opts.ndpSize)
	off := 0
	for _, dp := range e.dpes {
		putField(dpeTable[off:off+opts.fieldWidth.bytes()], opts.fieldWidth, uint32(dp.index))
		putField(dpeTable[off+opts.fieldWidth.bytes():off+opts.dpeSize], opts.fieldWidth, uint32(dp.length))
		off += opts.dpeSize
	}
	// the zero/zero terminator entry and any padding to ndplenAlign are
	// already present: dpeTable was zero-allocated and off stops one
	// entry short of its length.

	ntb = append(ntb, ndp...)
	ntb = append(ntb, dpeTable...)

	putField(ntb[0:4], dword, opts.nthSign)
	putField(ntb[4:6], word, uint32(opts.nthSize))
	putField(ntb[6:8], word, s.nextSequence())
	putField(ntb[8:8+opts.fieldWidth.bytes()], opts.fieldWidth, uint32(blockLength))
	putField(ntb[8+opts.fieldWidth.bytes():8+2*opts.fieldWidth.bytes()], opts.fieldWidth, uint32(ndpIndex))

	return ntb
}

// nextSequence returns the next wSequence value and increments the
// counter, matching the kernel's free-running per-session NTB sequence
// number.
func (s *Session) nextSequence() uint32 {
	seq := s.sequence
	s.sequence++
	return seq
}

// Wrap appends frame, an outbound Ethernet datagram, to the NTB under
// construction (C4). If frame does not fit the current NTB — by size or
// by the maxDatagramsPerNDP cap — the pending NTB is finalized and
// handed to Transmit first, and frame starts a new one. A nil frame
// forces finalize of whatever is pending, with no new datagram appended;
// the flush timer performs the same finalize directly, without going
// through Wrap.
//
// Wrap takes Session.mu: it is safe to call from any goroutine, but
// Transmit is invoked with the lock held, matching the session's
// single-writer discipline for the bulk-IN endpoint.
func (s *Session) Wrap(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen {
		return ErrEndpointShutdown
	}

	if frame != nil && len(frame) > maxDatagramSize {
		s.txDropped++
		return resourceExhausted("outbound datagram exceeds maxDatagramSize")
	}

	encoded := frame
	if frame != nil && s.crcMode {
		encoded = appendCRC32(append([]byte(nil), frame...))
	}

	if s.egress.body == nil {
		s.openNTB()
	}

	if encoded != nil && !s.egress.fits(len(encoded)) {
		if err := s.flushLocked(); err != nil {
			return err
		}
		s.openNTB()
	}

	if encoded == nil {
		return s.flushLocked()
	}

	if !s.egress.fits(len(encoded)) {
		// A single oversized datagram will never fit even a freshly
		// opened NTB.
		s.txDropped++
		return resourceExhausted("datagram does not fit a freshly opened NTB")
	}

	s.egress.appendDatagram(encoded)
	s.armFlushTimerLocked()

	return nil
}

// flushLocked finalizes and transmits whatever is pending, if anything.
// Caller must hold s.mu.
func (s *Session) flushLocked() error {
	if s.egress.body == nil || len(s.egress.dpes) == 0 {
		return nil
	}

	ntb := s.egress.finalize(s)
	s.egress = egressState{}
	s.stopFlushTimerLocked()

	if s.Transmit == nil {
		return resourceExhausted("no Transmit collaborator wired")
	}

	s.Transmit(ntb)

	return nil
}
