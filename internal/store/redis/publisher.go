// Package redis publishes the bot's live trading events to Redis
// Streams for dashboards and downstream consumers. Delivery is best-effort: a failing Redis must never stall
// or abort the trading loop.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"cryptobotv1/internal/model"
)

const (
	streamDecisions = "bot:decisions"
	streamTrades    = "bot:trades"
	streamAccount   = "bot:account"

	decisionsMaxLen = 10000
	tradesMaxLen    = 10000
	accountMaxLen   = 2000

	latestTTL = 30 * time.Minute
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes trading events to Redis Streams and keeps a "latest"
// key per stream for cheap polling.
type Publisher struct {
	client  *goredis.Client
	breaker *Breaker
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// NewPublisher connects and pings the server.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	breaker := NewBreaker(5, 10*time.Second)
	breaker.OnStateChange = func(from, to BreakerState) {
		log.Printf("[redis] publish breaker %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client, breaker: breaker}, nil
}

// SetBreakerHook registers an extra observer for publish breaker
// transitions, on top of the built-in logging.
func (p *Publisher) SetBreakerHook(fn func(from, to BreakerState)) {
	prev := p.breaker.OnStateChange
	p.breaker.OnStateChange = func(from, to BreakerState) {
		if prev != nil {
			prev(from, to)
		}
		fn(from, to)
	}
}

// PublishDecision appends a non-hold decision to the decisions stream.
func (p *Publisher) PublishDecision(ctx context.Context, d model.Decision) {
	p.publish(ctx, streamDecisions, decisionsMaxLen, d)
}

// PublishTrade appends a closed position to the trades stream.
func (p *Publisher) PublishTrade(ctx context.Context, pos model.Position) {
	p.publish(ctx, streamTrades, tradesMaxLen, pos)
}

// PublishAccount appends an account snapshot to the account stream.
func (p *Publisher) PublishAccount(ctx context.Context, acct model.Account) {
	p.publish(ctx, streamAccount, accountMaxLen, acct)
}

func (p *Publisher) publish(ctx context.Context, stream string, maxLen int64, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[redis] marshal for %s: %v", stream, err)
		return
	}

	err = p.breaker.Do(func() error {
		pipe := p.client.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: stream,
			MaxLen: maxLen,
			Approx: true,
			Values: map[string]interface{}{"data": string(data)},
		})
		pipe.Set(ctx, stream+":latest", string(data), latestTTL)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil && err != ErrBreakerOpen {
		log.Printf("[redis] publish %s: %v", stream, err)
	}
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
