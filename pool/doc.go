// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory reuse for puki: size-classed byte slices and a generic object pool.
// Used where reactor-borrowed buffers must be copied to outlive a callback.
package pool
