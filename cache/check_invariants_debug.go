//go:build debug
// +build debug

package cache

import (
	"log"

	"github.com/facebookgo/stackerr"
)

func (c *cache[K, V]) checkInvariants() {
	if err := c.verify(); err != nil {
		log.Fatal("FATAL: invariants are broken: ", stackerr.WrapSkip(err, 1))
	}
}
