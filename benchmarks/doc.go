// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for puki components. The package holds only
// benchmarks; run them with go test -bench . ./benchmarks.
package benchmarks
