package policycache

import (
	"io"

	"github.com/skipor/policycache/cache"
	"github.com/skipor/policycache/log"
)

// Config is parsed and validated server configuration.
type Config struct {
	Addr           string
	LogDestination io.Writer
	LogLevel       log.Level
	Cache          cache.Config
	MaxItemSize    int64
}
