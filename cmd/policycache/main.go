// Command policycache serves policy driven cache over memcached text protocol.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/facebookgo/stackerr"

	"github.com/skipor/policycache"
	"github.com/skipor/policycache/cmd/policycache/config"
	"github.com/skipor/policycache/internal/tag"
	"github.com/skipor/policycache/log"
)

const usageHeader = `Usage of %s:
Config values merge rules:
1) config file value overrides default
2) command line value overrides any
Options:
`

func main() {
	conf, err := loadConfig(os.Args[0], os.Args[1:])
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		log.NewLogger(log.DebugLevel, os.Stderr).Fatal("Config error: ", err)
	}
	l := log.NewLogger(conf.LogLevel, conf.LogDestination)
	l.Debugf("Config: %#v", conf)
	if tag.Debug {
		l.Warn("Using debug build. It has more runtime checks and large perfomance overhead.")
	}
	s, err := policycache.NewServer(l, conf)
	if err != nil {
		l.Fatal("Server create error: ", err)
	}
	l.Infof("Serve on %s. Cache policy %s, max items %v.", s.Addr, conf.Cache.Policy, s.Cache.Cap())
	err = s.ListenAndServe()
	l.Fatal("Serve error: ", err)
}

// loadConfig merges defaults, config file and command line values, and parses result.
func loadConfig(name string, args []string) (policycache.Config, error) {
	var configPath string
	flagConf := &config.Config{}
	fs := newFlagSet(name, &configPath, flagConf)
	if err := fs.Parse(args); err != nil {
		return policycache.Config{}, err
	}
	conf := config.Default()
	if configPath != "" {
		data, err := ioutil.ReadFile(configPath)
		if err != nil {
			return policycache.Config{}, stackerr.Wrap(err)
		}
		fileConf := &config.Config{}
		if err := config.Unmarshal(data, fileConf); err != nil {
			return policycache.Config{}, err
		}
		config.Merge(conf, fileConf)
	}
	config.Merge(conf, flagConf)
	return config.Parse(*conf)
}

// newFlagSet binds flags to conf fields. Zero flag values mean "not set" and are not merged.
func newFlagSet(name string, configPath *string, conf *config.Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usageHeader, name)
		fs.PrintDefaults()
	}
	def := config.Default()
	withDefault := func(usage string, defVal interface{}) string {
		return fmt.Sprintf("%s (default %#v)", usage, defVal)
	}
	fs.StringVar(configPath, "config", "", "path to json config")
	fs.StringVar(&conf.Host, "host", "", withDefault("host address to bind", def.Host))
	fs.IntVar(&conf.Port, "port", 0, withDefault("port num", def.Port))
	fs.StringVar(&conf.LogDestination, "log-destination", "", withDefault("log destination: stderr, stdout or file path", def.LogDestination))
	fs.StringVar(&conf.LogLevel, "log-level", "", withDefault("log level: debug, info, warn, error, fatal", def.LogLevel))
	fs.StringVar(&conf.Policy, "policy", "", withDefault("eviction policy: basic, fifo, lifo, lru, mru, lfu", def.Policy))
	fs.IntVar(&conf.MaxItems, "max-items", 0, withDefault("max number of cached items, ignored by basic policy", def.MaxItems))
	fs.StringVar(&conf.MaxItemSize, "max-item-size", "", withDefault("max item size: 10m, 1024k", def.MaxItemSize))
	return fs
}
