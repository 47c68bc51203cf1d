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
	"errors"
	"log"
)

// Error kinds returned by the NTB framing engine and control dispatcher.
//
// None of these are retried locally: the host retries lost or rejected
// transfers, and Ethernet above the data path tolerates individual NTB
// loss.
var (
	// ErrProtocolInvalid is returned by Unwrap when an inbound NTB fails
	// signature, length, alignment or CRC validation. The caller must
	// treat the entire NTB as dropped.
	ErrProtocolInvalid = errors.New("ncm: protocol invalid")

	// ErrResourceExhausted is returned by Wrap when an outbound NTB
	// cannot be allocated or grown. The caller must treat the offending
	// frame as dropped.
	ErrResourceExhausted = errors.New("ncm: resource exhausted")

	// ErrUnsupportedSetup is returned by HandleSetup for any
	// class-specific request that is unrecognized or malformed. The
	// caller must stall endpoint 0.
	ErrUnsupportedSetup = errors.New("ncm: unsupported setup request")

	// ErrEndpointShutdown is passed to NotifyComplete by the caller when
	// an in-flight notification request completed with a reset or
	// shutdown status.
	ErrEndpointShutdown = errors.New("ncm: endpoint shutdown")
)

// protocolInvalid logs why an inbound NTB is being dropped and returns
// ErrProtocolInvalid, matching the kernel driver's DBG()/INFO() call
// sites at each ncm_unwrap_ntb() rejection.
func protocolInvalid(reason string) error {
	log.Printf("ncm: protocol invalid: %s", reason)
	return ErrProtocolInvalid
}

// resourceExhausted logs why an outbound datagram is being dropped and
// returns ErrResourceExhausted.
func resourceExhausted(reason string) error {
	log.Printf("ncm: resource exhausted: %s", reason)
	return ErrResourceExhausted
}
