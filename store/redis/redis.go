// Package redis implements store.Store on top of redis/go-redis v9.
package redis

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	st "github.com/herdcache/herdcache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

// Config describes one server endpoint. Socket takes precedence over
// Addr/Port when it points at a live unix socket; a dead socket path is
// silently downgraded to a TCP dial so construction never fails on it.
type Config struct {
	Addr   string // host or IP; default "localhost"
	Port   int    // default 6379
	Socket string // optional unix socket path
	DB     int    // logical database index
}

// Store adapts a go-redis client to the store.Store capability.
type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var (
	_ st.Store  = (*Store)(nil)
	_ st.Pinger = (*Store)(nil)
)

// New wraps an existing client. Set closeClient true only if this store
// exclusively owns the client.
func New(client goredis.UniversalClient, closeClient bool) (*Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &Store{rdb: client, closeClient: closeClient}, nil
}

// Open dials a server described by cfg and owns the resulting client.
// It never returns an error: misconfiguration surfaces on first use.
func Open(cfg Config) *Store {
	network, addr := cfg.dial()
	rdb := goredis.NewClient(&goredis.Options{
		Network: network,
		Addr:    addr,
		DB:      cfg.DB,
	})
	return &Store{rdb: rdb, closeClient: true}
}

func (c Config) dial() (network, addr string) {
	if c.Socket != "" {
		if fi, err := os.Stat(c.Socket); err == nil && fi.Mode()&os.ModeSocket != 0 {
			return "unix", c.Socket
		}
		// not a live socket; fall through to TCP
	}
	host := c.Addr
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return "tcp", net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0 // non-positive TTLs mean "no expiry" per store contract
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Prefix pipelines EXISTS and GETRANGE in a single round-trip. GETRANGE alone
// cannot distinguish a missing key from an empty value.
func (s *Store) Prefix(ctx context.Context, key string, n int) ([]byte, bool, error) {
	if n <= 0 {
		ok, err := s.Exists(ctx, key)
		return nil, ok, err
	}

	var (
		ex *goredis.IntCmd
		gr *goredis.StringCmd
	)
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		ex = p.Exists(ctx, key)
		gr = p.GetRange(ctx, key, 0, int64(n-1))
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if ex.Val() == 0 {
		return nil, false, nil
	}
	return []byte(gr.Val()), true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
