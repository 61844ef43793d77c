package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RulesPubSub fans out rule-change notifications so every serving
// instance can drop its cached rule list for the store.
type RulesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewRulesPubSub(rdb *redis.Client) *RulesPubSub {
	return &RulesPubSub{
		rdb:     rdb,
		channel: ChannelRulesChanged(),
	}
}

type rulesChangedMsg struct {
	Type    string `json:"type"`
	StoreID string `json:"store_id"`
	TsUnix  int64  `json:"ts_unix"`
}

func (p *RulesPubSub) PublishRulesChanged(ctx context.Context, storeID string) error {
	msg := rulesChangedMsg{
		Type:    "rules_changed",
		StoreID: storeID,
		TsUnix:  time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *RulesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, storeID string)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev rulesChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.StoreID != "" {
				handler(ctx, ev.StoreID)
			}
		}
	}
}
