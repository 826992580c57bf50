// File: cancel/doc.go
// Package cancel
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-thread cancellation signal backed by a kernel wakeup object
// (eventfd on Linux). The descriptor sits in the reactor's wait set next to
// sockets; writing to it wakes the loop, which then shuts down. Once
// signaled, a Signal stays signaled.
package cancel
