// USB CDC-NCM gadget function
// https://github.com/usbarmory/tamago-ncm
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ncm implements the device-side core of a USB CDC-NCM
// (Network Control Model) gadget function: NTB (NCM Transfer Block)
// framing of Ethernet datagrams in both directions, the class-specific
// control request dispatcher, the interrupt-endpoint notification
// engine, and the interface alternate-setting state machine that gates
// the data path.
//
// USB endpoint I/O, descriptor/string-table/interface-ID enumeration
// and device bind-up are deliberately left to the caller: this package
// only decides what goes on the wire and when, never how to move bytes
// across an endpoint. Session is meant to be driven by a thin adapter
// in the style of TamaGo's imx6/usb gadget stack.
package ncm
