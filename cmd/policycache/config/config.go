package config

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"

	"github.com/skipor/policycache"
	"github.com/skipor/policycache/cache"
	"github.com/skipor/policycache/internal/util"
	"github.com/skipor/policycache/log"
)

// Parse validates input config and converts it into server config.
func Parse(conf Config) (pconf policycache.Config, err error) {
	pconf.LogDestination, err = logDestination(conf.LogDestination)
	if err != nil {
		err = stackerr.Newf("Log destination open error: %v", err)
		return
	}
	pconf.LogLevel, err = log.LevelFromString(conf.LogLevel)
	if err != nil {
		err = stackerr.Newf("Log level parse error: %v", err)
		return
	}
	pconf.Cache.Policy, err = cache.ParsePolicy(conf.Policy)
	if err != nil {
		err = stackerr.Newf("Policy parse error: %v", err)
		return
	}
	pconf.Cache.MaxItems = conf.MaxItems
	if pconf.Cache.Policy.Bounded() && pconf.Cache.MaxItems <= 0 {
		err = stackerr.Newf("Max items should be positive for %s policy.", pconf.Cache.Policy)
		return
	}
	pconf.MaxItemSize, err = parseSize(conf.MaxItemSize)
	if err != nil {
		err = stackerr.Newf("Max item size parse error: %v", err)
		return
	}
	switch {
	case pconf.MaxItemSize <= 0:
		err = stackerr.Newf("Max item size should be positive.")
		return
	case pconf.MaxItemSize > policycache.MaxItemSize:
		err = stackerr.Newf("Too large max item size.")
		return
	}
	pconf.Addr = net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port))
	return
}

func Default() *Config {
	return &Config{
		Port:           11211,
		Host:           "",
		LogDestination: "stderr",
		LogLevel:       "info",
		Policy:         cache.LRU.String(),
		MaxItems:       cache.DefaultMaxItems,
		MaxItemSize:    "1m",
	}
}

type Config struct {
	Port           int    `json:"port,omitempty"`
	Host           string `json:"host,omitempty"`
	LogDestination string `json:"log-destination,omitempty"` // Stdout, stderr, or filepath.
	LogLevel       string `json:"log-level,omitempty"`
	// One of basic, fifo, lifo, lru, mru, lfu.
	Policy   string `json:"policy,omitempty"`
	MaxItems int    `json:"max-items,omitempty"`
	// Size values 10m, 1024k, 1000000b
	MaxItemSize string `json:"max-item-size,omitempty"`
}

// Merge overwrites def values with non zero override values.
func Merge(def, override *Config) {
	defVal := reflect.ValueOf(def).Elem()
	overrideVal := reflect.ValueOf(override).Elem()
	for i, end := 0, defVal.NumField(); i < end; i++ {
		overrideVal := overrideVal.Field(i)
		if !util.IsZeroVal(overrideVal) {
			defVal.Field(i).Set(overrideVal)
		}
	}
}

func Marshal(conf *Config) []byte {
	data, err := json.Marshal(conf)
	if err != nil {
		panic(err)
	}
	return data
}

func Unmarshal(data []byte, conf *Config) error {
	return stackerr.Wrap(json.Unmarshal(data, conf))
}

var sizeSuffixes = map[byte]uint{'b': 0, 'k': 10, 'm': 20, 'g': 30}

// parseSize parses sizes like 10g, 128m, 1024k, 1000000b. Suffix case is ignored.
func parseSize(s string) (int64, error) {
	if len(s) < 2 {
		return 0, errors.Errorf("invalid size %q: number and suffix expected", s)
	}
	num, suffix := s[:len(s)-1], s[len(s)-1]
	shift, ok := sizeSuffixes[suffix|0x20] // Lower case for letters.
	if !ok {
		return 0, errors.Errorf("invalid size suffix %q: only 'b', 'k', 'm', 'g' allowed", suffix)
	}
	size, err := strconv.ParseInt(num, 10, 31)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	return size << shift, nil
}

func logDestination(dest string) (w io.Writer, err error) {
	switch strings.ToLower(dest) {
	case "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		w, err = os.OpenFile(dest, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	}
	return
}
