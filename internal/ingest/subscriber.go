package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"vehicle-sensor-platform/backend/internal/observe"
	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/repository"
)

// Channel names used in logs and metrics.
const (
	ChannelMotion   = "motion"
	ChannelPosition = "position"
)

// writeTimeout bounds a single store insert so a stalled store cannot pin a
// worker forever.
const writeTimeout = 5 * time.Second

// Config configures the MQTT subscription and the write pool.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// MotionTopic and PositionTopic are the two subscribed channels.
	MotionTopic   string
	PositionTopic string
	// Workers is the number of goroutines draining the write queue; QueueSize
	// caps how many accepted records can wait for a worker. Together they
	// bound the writes in flight during a burst.
	Workers   int
	QueueSize int
}

// LatestRecorder mirrors the newest position fix into the hot cache.
type LatestRecorder interface {
	Store(ctx context.Context, p *domain.PositionReading) error
}

type job struct {
	channel  string
	motion   *domain.MotionReading
	position *domain.PositionReading
}

// Subscriber maintains the subscription to both channels and persists each
// valid reading exactly once. Malformed messages and failed writes are
// logged and dropped; a bad message never stops the loop.
type Subscriber struct {
	cfg     Config
	repo    repository.Repository
	latest  LatestRecorder         // may be nil
	metrics *observe.IngestMetrics // may be nil
	log     *zap.Logger

	client mqtt.Client
	queue  chan job
	wg     sync.WaitGroup

	// mu guards closed against message handlers racing Stop; paho may still
	// deliver messages while the disconnect settles.
	mu     sync.RWMutex
	closed bool

	now func() time.Time
}

// New builds a Subscriber and starts its write workers. Call Start to connect
// to the broker and Stop to disconnect and drain queued writes.
func New(cfg Config, repo repository.Repository, latest LatestRecorder, metrics *observe.IngestMetrics, log *zap.Logger) *Subscriber {
	s := &Subscriber{
		cfg:     cfg,
		repo:    repo,
		latest:  latest,
		metrics: metrics,
		log:     log,
		queue:   make(chan job, cfg.QueueSize),
		now:     time.Now,
	}
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Start connects to the broker. Subscriptions are (re)established by the
// connect handler, so an automatic reconnect resubscribes both channels.
func (s *Subscriber) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.log.Warn("broker connection lost", zap.Error(err))
		})
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Stop disconnects from the broker and waits for queued writes to finish.
// Records from handlers still in flight are dropped.
func (s *Subscriber) Stop() {
	if s.client != nil {
		s.client.Disconnect(250)
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.queue)
	s.wg.Wait()
}

func (s *Subscriber) onConnect(c mqtt.Client) {
	s.log.Info("connected to broker",
		zap.String("motion_topic", s.cfg.MotionTopic),
		zap.String("position_topic", s.cfg.PositionTopic))

	if token := c.Subscribe(s.cfg.MotionTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		s.HandleMotion(msg.Payload(), msg.Retained())
	}); token.Wait() && token.Error() != nil {
		s.log.Error("subscribe failed", zap.String("topic", s.cfg.MotionTopic), zap.Error(token.Error()))
	}

	if token := c.Subscribe(s.cfg.PositionTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		s.HandlePosition(msg.Payload(), msg.Retained())
	}); token.Wait() && token.Error() != nil {
		s.log.Error("subscribe failed", zap.String("topic", s.cfg.PositionTopic), zap.Error(token.Error()))
	}
}

// HandleMotion processes one message from the motion channel.
func (s *Subscriber) HandleMotion(payload []byte, retained bool) {
	if retained {
		s.log.Debug("ignoring retained message", zap.String("channel", ChannelMotion))
		return
	}
	ctx := context.Background()
	s.metrics.Received(ctx, ChannelMotion)

	m, err := DecodeMotion(payload, s.now().UTC())
	if err != nil {
		s.metrics.Rejected(ctx, ChannelMotion)
		s.log.Warn("rejected motion message", zap.String("topic", s.cfg.MotionTopic), zap.Error(err))
		return
	}
	s.enqueue(job{channel: ChannelMotion, motion: m})
}

// HandlePosition processes one message from the position channel.
func (s *Subscriber) HandlePosition(payload []byte, retained bool) {
	if retained {
		s.log.Debug("ignoring retained message", zap.String("channel", ChannelPosition))
		return
	}
	ctx := context.Background()
	s.metrics.Received(ctx, ChannelPosition)

	p, err := DecodePosition(payload, s.now().UTC())
	if err != nil {
		s.metrics.Rejected(ctx, ChannelPosition)
		s.log.Warn("rejected position message", zap.String("topic", s.cfg.PositionTopic), zap.Error(err))
		return
	}
	s.enqueue(job{channel: ChannelPosition, position: p})
}

// enqueue hands a decoded record to the write pool. A full queue drops the
// record: ingestion stays fail-open instead of buffering without bound.
// After Stop the queue is closed and records are dropped instead of sent.
func (s *Subscriber) enqueue(j job) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.metrics.Dropped(context.Background(), j.channel)
		s.log.Warn("subscriber stopped, dropping record", zap.String("channel", j.channel))
		return
	}
	select {
	case s.queue <- j:
	default:
		s.metrics.Dropped(context.Background(), j.channel)
		s.log.Warn("write queue full, dropping record", zap.String("channel", j.channel))
	}
}

func (s *Subscriber) worker() {
	defer s.wg.Done()
	for j := range s.queue {
		s.persist(j)
	}
}

func (s *Subscriber) persist(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	if j.motion != nil {
		err = s.repo.InsertMotion(ctx, j.motion)
	} else {
		err = s.repo.InsertPosition(ctx, j.position)
	}
	if err != nil {
		s.metrics.Failed(ctx, j.channel)
		s.log.Error("persist failed, record dropped", zap.String("channel", j.channel), zap.Error(err))
		return
	}
	s.metrics.Persisted(ctx, j.channel)

	if j.position != nil && s.latest != nil {
		if err := s.latest.Store(ctx, j.position); err != nil {
			s.log.Warn("latest position cache update failed", zap.Error(err))
		}
	}
}
