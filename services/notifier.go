package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Signal kinds
const (
	// SignalRefresh tells every view of a tracking identity to re-fetch. ID is the tracking id.
	SignalRefresh = "refresh"
	// SignalTrackingChanged tells a caller's views that their tracking identity moved. ID is the caller id.
	SignalTrackingChanged = "trackingChanged"
)

// Signal is a refresh notification raised by a writer
type Signal struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// Notifier delivers signals to connected views. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, sig Signal)
}

// NopNotifier drops every signal
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Signal) {}

// RedisNotifier fans signals out to every server instance over Redis pub/sub
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

func NewRedisNotifier(redisClient *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{
		rdb:     redisClient,
		channel: channel,
	}
}

func (n *RedisNotifier) Notify(ctx context.Context, sig Signal) {
	jsonstr, err := json.Marshal(sig)
	if err != nil {
		log.Printf("❌ Failed to encode signal %+v: %v", sig, err)
		return
	}

	if err := n.rdb.Publish(ctx, n.channel, jsonstr).Err(); err != nil {
		log.Printf("❌ Failed to publish signal to '%s': %v", n.channel, err)
	}
}

// Subscribe delivers every signal published on the channel to handler
// until ctx is cancelled
func (n *RedisNotifier) Subscribe(ctx context.Context, handler func(Signal)) error {
	pubsub := n.rdb.Subscribe(ctx, n.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", n.channel, err)
	}
	log.Printf("📡 Subscribed to refresh channel '%s'", n.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			sig, err := DecodeSignal(msg.Payload)
			if err != nil {
				log.Printf("⚠️ Dropping malformed signal: %v", err)
				continue
			}
			handler(sig)
		}
	}
}

// DecodeSignal parses a published signal payload
func DecodeSignal(payload string) (Signal, error) {
	var sig Signal
	if err := json.Unmarshal([]byte(payload), &sig); err != nil {
		return Signal{}, fmt.Errorf("failed to decode signal: %w", err)
	}
	if sig.Kind == "" || sig.ID == "" {
		return Signal{}, fmt.Errorf("signal missing kind or id")
	}
	return sig, nil
}
