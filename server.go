package policycache

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"

	"github.com/skipor/policycache/cache"
	"github.com/skipor/policycache/log"
)

const DefaultAddr = ":11211"

// Server serves single shared cache to all connections.
type Server struct {
	Addr string
	ConnMeta
	Log    log.Logger
	connID int64
}

// ConnMeta is data shared between connections.
type ConnMeta struct {
	// Cache should be safe for concurrent use.
	Cache       cache.Store[string, *Item]
	Policy      cache.Policy
	Metrics     metrics.Registry
	MaxItemSize int
}

// NewServer creates server with synchronized cache configured by conf.
// Cache and server metrics are registered in the same registry, and reported by stats command.
func NewServer(l log.Logger, conf Config) (*Server, error) {
	registry := metrics.NewRegistry()
	cacheConf := conf.Cache
	cacheConf.Metrics = registry
	store, err := cache.New[string, *Item](l, cacheConf)
	if err != nil {
		return nil, err
	}
	s := &Server{Addr: conf.Addr, Log: l}
	s.ConnMeta = ConnMeta{
		Cache:       cache.Synchronized(store),
		Policy:      conf.Cache.Policy,
		Metrics:     registry,
		MaxItemSize: int(conf.MaxItemSize),
	}
	return s, nil
}

func (s *Server) ListenAndServe() error {
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections until listener returns non temporary error.
func (s *Server) Serve(ln net.Listener) error {
	s.init()
	conns := metrics.GetOrRegisterCounter(ConnMetric, s.Metrics)
	var backoff acceptBackoff
	for {
		rwc, err := ln.Accept()
		if err != nil {
			ne, ok := err.(net.Error)
			if !ok || !ne.Temporary() {
				return err
			}
			delay := backoff.next()
			s.Log.Errorf("Accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		backoff.reset()
		conns.Inc(1)
		go s.newConn(rwc).serve()
	}
}

// acceptBackoff doubles delay after every consecutive accept failure.
type acceptBackoff time.Duration

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func (b *acceptBackoff) next() time.Duration {
	d := time.Duration(*b) * 2
	if d < minAcceptDelay {
		d = minAcceptDelay
	}
	if d > maxAcceptDelay {
		d = maxAcceptDelay
	}
	*b = acceptBackoff(d)
	return d
}

func (b *acceptBackoff) reset() { *b = 0 }

func (s *Server) newConn(rwc net.Conn) *conn {
	id := atomic.AddInt64(&s.connID, 1)
	return newConn(s.Log.WithFields(log.Fields{"conn": id}), &s.ConnMeta, rwc)
}

func (s *Server) init() {
	if s.Log == nil {
		s.Log = log.NewNop()
	}
	s.ConnMeta.init(s.Log)
}

// init sets defaults for zero fields.
func (m *ConnMeta) init(l log.Logger) {
	if m.Metrics == nil {
		m.Metrics = metrics.NewRegistry()
	}
	if m.MaxItemSize == 0 {
		m.MaxItemSize = DefaultMaxItemSize
	}
	if m.Cache != nil {
		return
	}
	store, err := cache.New[string, *Item](l, cache.Config{
		Policy:   m.Policy,
		MaxItems: cache.DefaultMaxItems,
		Metrics:  m.Metrics,
	})
	if err != nil {
		l.Panic("Default cache create error: ", err)
	}
	m.Cache = cache.Synchronized(store)
}
