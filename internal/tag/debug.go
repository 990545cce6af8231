//go:build debug
// +build debug

package tag

// Debug build has more runtime checks and large perfomance overhead.
const Debug = true
