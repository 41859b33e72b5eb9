package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stake-plus/council-treasury/src/council/governance"
)

const (
	StreamEvents    = "council.events"
	streamMaxLength = 100_000
)

// Stream appends committed events to a redis stream for downstream
// consumers.
type Stream struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	approx bool
}

func NewStream(rdb *redis.Client) *Stream {
	return &Stream{rdb: rdb, stream: StreamEvents, maxLen: streamMaxLength, approx: true}
}

func (s *Stream) Publish(ctx context.Context, ev governance.Event) error {
	values, err := streamValues(ev)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.approx,
		Values: values,
	}).Err()
}

// Tail reads events newer than lastID ("$" for only new ones), blocking up
// to block for the first one.
func (s *Stream) Tail(ctx context.Context, lastID string, count int64, block time.Duration) ([]governance.Event, string, error) {
	res, err := s.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, lastID},
		Count:   count,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, lastID, nil
	}
	if err != nil {
		return nil, lastID, err
	}
	var out []governance.Event
	for _, st := range res {
		for _, msg := range st.Messages {
			lastID = msg.ID
			raw, _ := msg.Values["payload"].(string)
			var ev governance.Event
			if err := json.Unmarshal([]byte(raw), &ev); err != nil {
				continue
			}
			out = append(out, ev)
		}
	}
	return out, lastID, nil
}

// LastID returns the id of the newest entry, or "0" for an empty stream.
func (s *Stream) LastID(ctx context.Context) (string, error) {
	msgs, err := s.rdb.XRevRangeN(ctx, s.stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	if len(msgs) == 0 {
		return "0", nil
	}
	return msgs[0].ID, nil
}

func streamValues(ev governance.Event) (map[string]interface{}, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"kind":    ev.Kind,
		"dao":     ev.Dao,
		"ref":     ev.Ref,
		"amount":  strconv.FormatUint(ev.Amount, 10),
		"at":      ev.At.UTC().Format(time.RFC3339),
		"payload": string(payload),
	}, nil
}
