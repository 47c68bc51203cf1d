// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ncm

// EthernetLink is the network-stack collaborator a Session drives as
// its data interface opens and closes. A typical implementation
// forwards Connect/Disconnect to a gVisor channel.Endpoint's link state
// (see GvisorLink); tests can use a no-op or recording fake.
type EthernetLink interface {
	// Connect is called when the data interface's active alternate
	// setting is selected and the bulk endpoints are ready to move
	// frames.
	Connect()

	// Disconnect is called when the data interface returns to altsetting
	// 0 or the function is unbound.
	Disconnect()
}
