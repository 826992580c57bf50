// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the readiness multiplexer the
// connection reactor is built on (epoll on Linux).

package api

// Interest is a bitmask of readiness conditions a descriptor is watched for,
// and of the conditions reported back for it.
type Interest uint32

const (
	Readable Interest = 1 << iota
	Writable
	// PeerHangup reports that the peer shut down its write side.
	PeerHangup
	// Hangup reports a full hangup of the descriptor.
	Hangup
	// Failure reports an error condition pending on the descriptor.
	Failure
)

// Event encapsulates the result of an OS-level readiness notification.
type Event struct {
	Fd    int
	Ready Interest
}

// Multiplexer defines the operations the reactor needs from a
// level-triggered readiness facility.
type Multiplexer interface {
	// Add must start watching fd for the given interest.
	Add(fd int, interest Interest) error

	// Modify must replace the interest set of a watched fd.
	Modify(fd int, interest Interest) error

	// Remove must stop watching fd.
	Remove(fd int) error

	// Wait must block until at least one descriptor is ready and fill events.
	// An interrupted wait reports zero events and no error.
	Wait(events []Event) (int, error)

	// Close must release the multiplexer handle.
	Close() error
}
