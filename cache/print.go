package cache

import (
	"bufio"
	"fmt"
	"io"
)

// Print writes all resident entries of s in Items order. Output is for debug only.
func Print[K comparable, V any](w io.Writer, s Store[K, V]) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Current cache:\n")
	for _, e := range s.Items() {
		fmt.Fprintf(bw, "%v: %v\n", e.Key, e.Value)
	}
	return bw.Flush()
}
