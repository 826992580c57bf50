// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the level-triggered readiness multiplexer the
// connection server is built on. Linux uses epoll(7); other platforms get a
// stub that reports api.ErrNotSupported.
package reactor
