package logging

import (
	"context"
	"errors"
	"sync"
	"time"

	"modelgw/internal/utils"
)

// LogRecord is one proxied request as written to the log archive
type LogRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
	AccountID        int64     `json:"account_id"`
	Alias            string    `json:"alias,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	UsedLightModel   bool      `json:"used_light_model,omitempty"`
	FallbackDepth    int       `json:"fallback_depth,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	GatewayMs        int64     `json:"gateway_ms"`
	Succeeded        bool      `json:"succeeded"`
	Error            string    `json:"error,omitempty"`
}

// Sink receives log records from the request path
type Sink interface {
	Enqueue(rec *LogRecord) error
}

// NoopSink discards records. Used when no archive is configured.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(rec *LogRecord) error {
	return nil
}

// BatchWriter persists a batch of records somewhere durable
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []*LogRecord) (string, error)
}

// ErrSinkClosed is returned by Enqueue after Close
var ErrSinkClosed = errors.New("log sink is closed")

// BufferedSink batches records in memory and hands full batches to a
// BatchWriter. Enqueue never blocks the request path: when the buffer
// is full the record is dropped and counted.
type BufferedSink struct {
	writer        BatchWriter
	batchSize     int
	flushInterval time.Duration
	logger        *utils.Logger

	recordCh chan *LogRecord
	doneCh   chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	dropped int64
}

func NewBufferedSink(writer BatchWriter, batchSize int, flushInterval time.Duration) *BufferedSink {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}
	s := &BufferedSink{
		writer:        writer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        utils.NewLogger("log-sink"),
		recordCh:      make(chan *LogRecord, batchSize*10),
		doneCh:        make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *BufferedSink) Enqueue(rec *LogRecord) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	select {
	case s.recordCh <- rec:
		return nil
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return nil
	}
}

// Dropped returns how many records were discarded because the buffer
// was full
func (s *BufferedSink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close flushes the remaining records and stops the background writer
func (s *BufferedSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)
	s.wg.Wait()
	return nil
}

func (s *BufferedSink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]*LogRecord, 0, s.batchSize)
	for {
		select {
		case rec := <-s.recordCh:
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.doneCh:
			// drain whatever is still queued
			for {
				select {
				case rec := <-s.recordCh:
					batch = append(batch, rec)
				default:
					if len(batch) > 0 {
						s.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (s *BufferedSink) flush(batch []*LogRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records := make([]*LogRecord, len(batch))
	copy(records, batch)

	key, err := s.writer.WriteBatch(ctx, records)
	if err != nil {
		s.logger.Error("failed to write log batch", "count", len(records), "error", err.Error())
		return
	}
	if key != "" {
		s.logger.Debug("wrote log batch", "key", key, "count", len(records))
	}
}
