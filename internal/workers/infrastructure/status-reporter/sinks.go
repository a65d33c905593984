// internal/workers/infrastructure/status-reporter/sinks.go
package statusreporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"vigil-workers/internal/common/aws"
	"vigil-workers/internal/common/database"
	"vigil-workers/internal/models"
)

const (
	ChannelPrefix = "vigil:status:"
	LogKeyPrefix  = "vigil:status-log:"
)

// LogSink writes every update to the structured log.
type LogSink struct {
	logger Logger
}

func NewLogSink(log Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, u models.StatusUpdate) error {
	s.logger.Info(u.Message, map[string]interface{}{
		"requestId": u.RequestID,
		"seq":       u.Seq,
	})
	return nil
}

// RedisSink publishes each update and appends it to a per-request list that
// expires after TTL.
type RedisSink struct {
	client *database.RedisClient
	ttl    time.Duration
}

func NewRedisSink(client *database.RedisClient, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, ttl: ttl}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, u models.StatusUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, ChannelPrefix+u.RequestID, payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := s.client.AppendWithTTL(ctx, LogKeyPrefix+u.RequestID, payload, s.ttl); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// History reads the recorded updates for requestID, oldest first.
func (s *RedisSink) History(ctx context.Context, requestID string) ([]models.StatusUpdate, error) {
	raw, err := s.client.Range(ctx, LogKeyPrefix+requestID)
	if err != nil {
		return nil, err
	}
	out := make([]models.StatusUpdate, 0, len(raw))
	for _, item := range raw {
		var u models.StatusUpdate
		if err := json.Unmarshal([]byte(item), &u); err != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// SNSSink publishes to a FIFO topic grouped by request id.
type SNSSink struct {
	client *aws.SNSClient
}

func NewSNSSink(client *aws.SNSClient) *SNSSink {
	return &SNSSink{client: client}
}

func (s *SNSSink) Name() string { return "sns" }

func (s *SNSSink) Deliver(ctx context.Context, u models.StatusUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.client.PublishOrdered(ctx, u.RequestID, fmt.Sprintf("%s-%d", u.RequestID, u.Seq), string(payload))
}

// Recorder keeps updates in memory. It backs /status when Redis is disabled.
type Recorder struct {
	mu      sync.Mutex
	updates map[string][]models.StatusUpdate
	limit   int
}

// NewRecorder keeps at most limit requests; 0 means unbounded.
func NewRecorder(limit int) *Recorder {
	return &Recorder{updates: make(map[string][]models.StatusUpdate), limit: limit}
}

func (r *Recorder) Name() string { return "memory" }

func (r *Recorder) Deliver(_ context.Context, u models.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.updates[u.RequestID]; !ok && r.limit > 0 && len(r.updates) >= r.limit {
		for id := range r.updates {
			delete(r.updates, id)
			break
		}
	}
	r.updates[u.RequestID] = append(r.updates[u.RequestID], u)
	return nil
}

func (r *Recorder) History(_ context.Context, requestID string) ([]models.StatusUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.StatusUpdate, len(r.updates[requestID]))
	copy(out, r.updates[requestID])
	return out, nil
}

// Messages returns just the message texts for requestID.
func (r *Recorder) Messages(requestID string) []string {
	updates, _ := r.History(context.Background(), requestID)
	out := make([]string, len(updates))
	for i, u := range updates {
		out[i] = u.Message
	}
	return out
}
