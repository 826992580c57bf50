// File: server/conntable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection table owned by the reactor goroutine.

package server

import (
	"net/netip"
	"slices"

	"github.com/momentics/puki/api"
)

// conn is one accepted client. It is in the table iff its fd is
// registered with the multiplexer and OnClose has not been reported.
type conn struct {
	fd       int
	peer     netip.AddrPort
	interest api.Interest
	// pending holds echo bytes the socket would not take yet.
	pending []byte
}

func (c *conn) id() api.ConnID { return api.ConnID(c.fd) }

// connTable is accessed only by the reactor goroutine; it needs no locking.
type connTable struct {
	byFd map[int]*conn
}

func newConnTable() *connTable {
	return &connTable{byFd: make(map[int]*conn)}
}

func (t *connTable) insert(c *conn) {
	t.byFd[c.fd] = c
}

func (t *connTable) get(fd int) *conn {
	return t.byFd[fd]
}

func (t *connTable) remove(fd int) {
	delete(t.byFd, fd)
}

func (t *connTable) len() int {
	return len(t.byFd)
}

// fds returns open descriptors in ascending order.
func (t *connTable) fds() []int {
	out := make([]int, 0, len(t.byFd))
	for fd := range t.byFd {
		out = append(out, fd)
	}
	slices.Sort(out)
	return out
}
