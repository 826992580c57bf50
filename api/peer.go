// File: api/peer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conversions between the raw network-byte-order peer form and netip.

package api

import (
	"encoding/binary"
	"net/netip"
)

// WirePeer builds a peer address from an IPv4 address and port given in
// network byte order, as they appear in a sockaddr_in.
func WirePeer(ipNet uint32, portNet uint16) netip.AddrPort {
	var ip [4]byte
	binary.NativeEndian.PutUint32(ip[:], ipNet)
	var port [2]byte
	binary.NativeEndian.PutUint16(port[:], portNet)
	return netip.AddrPortFrom(netip.AddrFrom4(ip), binary.BigEndian.Uint16(port[:]))
}

// PeerToWire is the inverse of WirePeer. Non-IPv4 addresses yield a zero address.
func PeerToWire(p netip.AddrPort) (ipNet uint32, portNet uint16) {
	var ip [4]byte
	if a := p.Addr().Unmap(); a.Is4() {
		ip = a.As4()
	}
	var port [2]byte
	binary.BigEndian.PutUint16(port[:], p.Port())
	return binary.NativeEndian.Uint32(ip[:]), binary.NativeEndian.Uint16(port[:])
}
