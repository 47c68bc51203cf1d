// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

import "time"

// defaultFlushTimeout is Session.FlushTimeout's zero-value default,
// matching the kernel driver's TX_TIMEOUT_NSECS constant: a short grace
// period to coalesce datagrams arriving close together into one NTB
// before forcing a transmit of a partially-filled one.
const defaultFlushTimeout = 300 * time.Microsecond

// armFlushTimerLocked (re)starts the flush timer after a datagram was
// appended to a non-empty, non-full NTB. Caller must hold s.mu.
//
// The kernel models this with a hardware tasklet serialized by the
// transport layer's single-consumer guarantee; a software timer fires
// on its own goroutine, so timerStopping here is the explicit latch
// that relationship no longer gets for free.
func (s *Session) armFlushTimerLocked() {
	if s.timerStopping {
		return
	}

	timeout := s.FlushTimeout
	if timeout <= 0 {
		timeout = defaultFlushTimeout
	}

	if s.flushTimer == nil {
		s.flushTimer = time.AfterFunc(timeout, s.onFlushTimer)
	} else {
		s.flushTimer.Reset(timeout)
	}
}

// stopFlushTimerLocked cancels any pending flush deadline. Caller must
// hold s.mu.
func (s *Session) stopFlushTimerLocked() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
}

// onFlushTimer runs on the timer's own goroutine when a partially-built
// NTB has sat unflushed past FlushTimeout. It takes s.mu itself, since
// it is never called with the lock held.
func (s *Session) onFlushTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timerStopping || !s.isOpen {
		return
	}

	s.flushLocked()
}

// stopTimer permanently disarms the flush timer, used when the data
// interface is torn down (Disable). timerStopping stays set until the
// next enable of the data interface, or a Session.Reset, clears it.
func (s *Session) stopTimer() {
	s.mu.Lock()
	s.timerStopping = true
	t := s.flushTimer
	s.flushTimer = nil
	s.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}
