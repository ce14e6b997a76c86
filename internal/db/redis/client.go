package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/blinderchief/visiolingua/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	readyPollStart = 50 * time.Millisecond
	readyPollMax   = time.Second
	defaultName    = "visiolingua"
)

// Config holds connection parameters for a Redis-protocol store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Valkey selects valkey-search compatibility: it answers KNN queries only,
	// so listings are served from SCAN + HGETALL.
	Valkey bool
	// ClientName is sent with CLIENT SETNAME; empty uses "visiolingua".
	ClientName string
}

// Store serves content hashes, the FT index and cached embeddings over rueidis.
type Store struct {
	client rueidis.Client
	valkey bool
}

// NewStore dials the first reachable address in cfg.Addrs.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = defaultName
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		DisableCache: true,
		// FT.SEARCH replies are parsed as RESP2 arrays.
		AlwaysRESP2: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client, valkey: cfg.Valkey}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with a doubling interval until the store answers or timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := readyPollStart
	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("store not ready after %s: %w", timeout, lastErr)
		case <-time.After(wait):
		}
		wait = min(wait*2, readyPollMax)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server reply whose text contains substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
