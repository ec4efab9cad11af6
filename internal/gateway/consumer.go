package gateway

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Streams published by the trading bot.
var botStreams = []string{"bot:decisions", "bot:trades", "bot:account"}

// StreamConsumer tails the bot's Redis Streams and routes every entry
// to the hub.
type StreamConsumer struct {
	rdb *goredis.Client
	hub *Hub
}

func NewStreamConsumer(rdb *goredis.Client, hub *Hub) *StreamConsumer {
	return &StreamConsumer{rdb: rdb, hub: hub}
}

// Run blocks until the context is canceled. Read errors back off and
// retry; the gateway must survive a Redis restart.
func (c *StreamConsumer) Run(ctx context.Context) {
	// "$" means new entries only; history comes from the bot's
	// ":latest" keys via the REST API.
	lastIDs := make(map[string]string, len(botStreams))
	for _, s := range botStreams {
		lastIDs[s] = "$"
	}

	log.Printf("[gateway] consuming %d streams", len(botStreams))
	for {
		if ctx.Err() != nil {
			return
		}

		args := &goredis.XReadArgs{Block: 5 * time.Second, Count: 100}
		for _, s := range botStreams {
			args.Streams = append(args.Streams, s)
		}
		for _, s := range botStreams {
			args.Streams = append(args.Streams, lastIDs[s])
		}

		res, err := c.rdb.XRead(ctx, args).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[gateway] xread: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				lastIDs[stream.Stream] = msg.ID
				c.route(stream.Stream, msg)
			}
		}
	}
}

func (c *StreamConsumer) route(stream string, msg goredis.XMessage) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		log.Printf("[gateway] %s entry %s has no data field", stream, msg.ID)
		return
	}
	c.hub.Broadcast(stream, []byte(raw), extractTS([]byte(raw)))
}

// extractTS pulls the payload's own timestamp for latency tracking.
func extractTS(data []byte) time.Time {
	var partial struct {
		TS time.Time `json:"ts"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return time.Time{}
	}
	return partial.TS
}
