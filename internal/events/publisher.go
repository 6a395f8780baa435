package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	TypeForecastCompleted = "forecast.completed"
	queueSize             = 128
)

type Config struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int      `yaml:"acks"`
}

func DefaultConfig() Config {
	return Config{Topic: "growthcast.forecasts", Acks: int(kafka.RequireAll)}
}

// ForecastCompleted is emitted after each successful forecast run.
type ForecastCompleted struct {
	Type           string    `json:"type"`
	RequestHash    string    `json:"request_hash"`
	Months         int       `json:"months"`
	StartTotal     float64   `json:"start_total"`
	ProjectedTotal float64   `json:"projected_total"`
	ProgressPct    float64   `json:"progress_pct"`
	GoalMonth      int       `json:"goal_month"`
	Cached         bool      `json:"cached"`
	DurationMS     int64     `json:"duration_ms"`
	At             time.Time `json:"at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes events to kafka from a background goroutine. A
// disabled Publisher accepts and discards everything.
type Publisher struct {
	writer  messageWriter
	queue   chan kafka.Message
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("events topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.Acks),
		BatchTimeout: 50 * time.Millisecond,
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("Event publisher enabled")
	return newPublisher(w), nil
}

func newPublisher(w messageWriter) *Publisher {
	p := &Publisher{writer: w, queue: make(chan kafka.Message, queueSize), timeout: 5 * time.Second}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Publisher) Enabled() bool { return p != nil && p.writer != nil }

// PublishForecast enqueues the event keyed by request hash. It never
// blocks; a full queue drops the event with a warning.
func (p *Publisher) PublishForecast(ev ForecastCompleted) error {
	if !p.Enabled() {
		return nil
	}
	ev.Type = TypeForecastCompleted
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(ev.RequestHash),
		Value:   payload,
		Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("publisher closed")
	}
	select {
	case p.queue <- msg:
	default:
		log.Warn().Str("hash", ev.RequestHash).Msg("Event queue full, dropping forecast event")
	}
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			log.Warn().Err(err).Str("key", string(msg.Key)).Msg("Failed to publish event")
		}
		cancel()
	}
}

// Close drains queued events and closes the writer.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}
