// Package app wires configuration into stores, upstream clients and
// services. The server and the operator CLI build the same graph from it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"rostersync/internal/extraction"
	"rostersync/internal/identity/embedding"
	identitymetrics "rostersync/internal/identity/metrics"
	"rostersync/internal/identity/resolver"
	identitystore "rostersync/internal/identity/store"
	"rostersync/internal/llm"
	"rostersync/internal/notification/copywriter"
	"rostersync/internal/notification/delivery"
	notificationmetrics "rostersync/internal/notification/metrics"
	notificationservice "rostersync/internal/notification/service"
	notificationstore "rostersync/internal/notification/store"
	"rostersync/internal/platform/config"
	"rostersync/internal/platform/kafka"
	"rostersync/internal/platform/postgres"
	redisclient "rostersync/internal/platform/redis"
	rostermetrics "rostersync/internal/roster/metrics"
	"rostersync/internal/roster/models"
	rosterservice "rostersync/internal/roster/service"
	rosterstore "rostersync/internal/roster/store"
	"rostersync/pkg/platform/circuit"
)

const (
	pushTopicPartitions  = 3
	pushTopicReplication = 1
	mailRelayTimeout     = 10 * time.Second
)

// RosterStore is the roster persistence both backends provide.
type RosterStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store rosterstore.Store) error) error
	LatestVersion(ctx context.Context, key models.WeekKey) (*models.RosterVersion, error)
	ListVersions(ctx context.Context, key models.WeekKey) ([]models.RosterVersion, error)
}

// IdentityStore is the identity catalogue both backends provide.
type IdentityStore interface {
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Identity, error)
	UpsertEmbedding(ctx context.Context, userID uuid.UUID, embedding []float32) error
}

// Metrics groups the per-context collectors. Registration is process wide,
// so build it once.
type Metrics struct {
	Identity     *identitymetrics.Metrics
	Roster       *rostermetrics.Metrics
	Notification *notificationmetrics.Metrics
}

func NewMetrics() *Metrics {
	return &Metrics{
		Identity:     identitymetrics.New(),
		Roster:       rostermetrics.New(),
		Notification: notificationmetrics.New(),
	}
}

// App owns the process's connections. Services are built on demand so a
// command that only reads versions does not need model credentials.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *Metrics

	db    *sql.DB
	redis *redisclient.Client
	kafka *kgo.Client

	rosters       RosterStore
	identities    IdentityStore
	notifications notificationservice.Store

	llm      *llm.Client
	embedder embedding.Provider
}

type Option func(*App)

func WithMetrics(m *Metrics) Option {
	return func(a *App) {
		if m != nil {
			a.metrics = m
		}
	}
}

// Open connects to the configured backends. Without DATABASE_URL every
// store is in memory and nothing survives a restart.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	a := &App{cfg: cfg, logger: logger, metrics: &Metrics{}}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.rosters = rosterstore.NewPostgres(db)
		a.identities = identitystore.NewPostgres(db)
		a.notifications = notificationstore.NewPostgres(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		rosters := rosterstore.NewInMemory()
		a.rosters = rosters
		a.identities = identitystore.NewInMemory()
		a.notifications = notificationstore.NewInMemory(rosters)
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = rc

	kc, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.kafka = kc
	if kc != nil {
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.PushTopic, pushTopicPartitions, pushTopicReplication); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Close releases every connection Open made.
func (a *App) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) Rosters() RosterStore {
	return a.rosters
}

func (a *App) Identities() IdentityStore {
	return a.identities
}

// Migrate applies the schema. It is an error in memory mode.
func (a *App) Migrate(ctx context.Context) error {
	if a.db == nil {
		return errors.New("migrate: DATABASE_URL is not set")
	}
	return postgres.Migrate(ctx, a.db)
}

// Health pings the backends that are configured.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) chat() (*llm.Client, error) {
	if a.llm != nil {
		return a.llm, nil
	}
	client, err := llm.New(llm.Config{
		APIKey:  a.cfg.LLM.APIKey,
		BaseURL: a.cfg.LLM.BaseURL,
		Timeout: a.cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("chat client: %w", err)
	}
	a.llm = client
	return client, nil
}

// Embedder returns the configured provider behind a circuit breaker and,
// when Redis is configured, a shared cache.
func (a *App) Embedder(ctx context.Context) (embedding.Provider, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}
	var (
		base embedding.Provider
		err  error
	)
	switch a.cfg.Embedding.Provider {
	case "genai":
		base, err = embedding.NewGenAI(ctx, a.cfg.Embedding.GenAIAPIKey, a.cfg.Embedding.Model)
	default:
		base, err = embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:  a.cfg.LLM.APIKey,
			BaseURL: a.cfg.LLM.BaseURL,
			Model:   a.cfg.Embedding.Model,
			Timeout: a.cfg.LLM.Timeout,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	var provider embedding.Provider = embedding.NewGuarded(base,
		circuit.New("embedding-"+base.Name()), a.logger, a.metrics.Identity)
	if a.redis != nil {
		provider = embedding.NewCached(provider, a.redis,
			embedding.WithCacheTTL(a.cfg.Embedding.CacheTTL),
			embedding.WithFlightTimeout(a.cfg.LLM.Timeout),
			embedding.WithCacheLogger(a.logger),
			embedding.WithCacheMetrics(a.metrics.Identity),
		)
	}
	a.embedder = provider
	return provider, nil
}

func (a *App) Resolver(ctx context.Context) (*resolver.Resolver, error) {
	embedder, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.New(embedder,
		resolver.WithThreshold(a.cfg.Matching.Threshold),
		resolver.WithConcurrency(a.cfg.Embedding.Concurrency),
		resolver.WithLogger(a.logger),
		resolver.WithMetrics(a.metrics.Identity),
	), nil
}

// Ingestion builds the roster ingestion service.
func (a *App) Ingestion(ctx context.Context) (*rosterservice.Service, error) {
	client, err := a.chat()
	if err != nil {
		return nil, err
	}
	res, err := a.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	return rosterservice.New(
		extraction.NewTableExtractor(client, a.cfg.LLM.VisionModel, a.logger),
		extraction.NewShiftNormalizer(client, a.cfg.LLM.NormalizeModel, a.logger),
		a.identities,
		res,
		a.rosters,
		rosterservice.WithLogger(a.logger),
		rosterservice.WithMetrics(a.metrics.Roster),
		rosterservice.WithVersionRetries(a.cfg.Matching.VersionRetries),
	)
}

// Sweeper builds the notification sweep. Push goes to Kafka when brokers
// are configured and to the log otherwise; email needs a relay URL.
func (a *App) Sweeper() (*notificationservice.Service, error) {
	client, err := a.chat()
	if err != nil {
		return nil, err
	}
	var push notificationservice.PushSender = delivery.NewLogPush(a.logger)
	if a.kafka != nil {
		push = delivery.NewKafkaPush(a.kafka, a.cfg.Kafka.PushTopic)
	}
	opts := []notificationservice.Option{
		notificationservice.WithLogger(a.logger),
		notificationservice.WithMetrics(a.metrics.Notification),
		notificationservice.WithWindow(a.cfg.Notification.Window),
		notificationservice.WithTimezone(a.cfg.Notification.Timezone),
	}
	if a.cfg.Notification.MailRelayURL != "" {
		opts = append(opts, notificationservice.WithEmail(
			delivery.NewEmailRelay(a.cfg.Notification.MailRelayURL, mailRelayTimeout)))
	}
	return notificationservice.New(
		a.notifications,
		copywriter.New(client, a.cfg.LLM.CopyModel, a.logger),
		push,
		opts...,
	)
}
