package redisconn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is returned once every connection attempt has failed.
var ErrUnavailable = errors.New("redis is unavailable")

// Options configures how the provider connects.
type Options struct {
	URL         string
	MaxRetries  int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	PingTimeout time.Duration
}

// Provider owns the process-wide Redis client.
// The client is created lazily; concurrent first callers share one connect attempt.
type Provider struct {
	opts      Options
	redisOpts *redis.Options

	mu     sync.RWMutex
	client *redis.Client
	closed bool

	group singleflight.Group
}

// NewProvider validates the connection string without dialing.
func NewProvider(opts Options) (*Provider, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 100 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 2 * time.Second
	}

	return &Provider{
		opts:      opts,
		redisOpts: redisOpts,
	}, nil
}

// Client returns the shared client, connecting on first use.
func (p *Provider) Client(ctx context.Context) (*redis.Client, error) {
	p.mu.RLock()
	client, closed := p.client, p.closed
	p.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("%w: provider closed", ErrUnavailable)
	}
	if client != nil {
		return client, nil
	}

	ch := p.group.DoChan("connect", func() (interface{}, error) {
		return p.connect()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*redis.Client), nil
	}
}

// connect dials with bounded exponential backoff. It runs detached from any
// caller's context because other callers may be waiting on the same attempt.
func (p *Provider) connect() (*redis.Client, error) {
	p.mu.RLock()
	if p.client != nil {
		client := p.client
		p.mu.RUnlock()
		return client, nil
	}
	p.mu.RUnlock()

	client := redis.NewClient(p.redisOpts)
	b := &backoff.Backoff{
		Min:    p.opts.MinBackoff,
		Max:    p.opts.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.PingTimeout)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			break
		}

		log.Warn().Err(lastErr).
			Int("attempt", attempt).
			Int("max_retries", p.opts.MaxRetries).
			Str("addr", p.redisOpts.Addr).
			Msg("failed to connect to redis")

		if attempt < p.opts.MaxRetries {
			time.Sleep(b.Duration())
		}
	}

	if lastErr != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = client.Close()
		return nil, fmt.Errorf("%w: provider closed", ErrUnavailable)
	}
	p.client = client

	log.Info().Str("addr", p.redisOpts.Addr).Msg("connected to redis ✅")
	return client, nil
}

// Ping checks the connection, connecting first if needed.
func (p *Provider) Ping(ctx context.Context) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Addr is the host:port the provider connects to.
func (p *Provider) Addr() string {
	return p.redisOpts.Addr
}

// Close releases the client. Later calls to Client fail with ErrUnavailable.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
