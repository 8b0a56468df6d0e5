package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	libredis "fleetpower/backend/libs/redis"
	"fleetpower/backend/services/telemetry-service/internal/config"
	"fleetpower/backend/services/telemetry-service/internal/db"
	"fleetpower/backend/services/telemetry-service/internal/events"
	httpserver "fleetpower/backend/services/telemetry-service/internal/http"
	"fleetpower/backend/services/telemetry-service/internal/http/handlers"
	"fleetpower/backend/services/telemetry-service/internal/http/middleware"
	"fleetpower/backend/services/telemetry-service/internal/memstore"
	"fleetpower/backend/services/telemetry-service/internal/metrics"
	mqttsub "fleetpower/backend/services/telemetry-service/internal/mqtt"
	"fleetpower/backend/services/telemetry-service/internal/ocpp"
	ocpphandlers "fleetpower/backend/services/telemetry-service/internal/ocpp/handlers"
	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
	redisstore "fleetpower/backend/services/telemetry-service/internal/redis"
	"fleetpower/backend/services/telemetry-service/internal/repository"
	"fleetpower/backend/services/telemetry-service/internal/service"
	"fleetpower/backend/services/telemetry-service/internal/ws"
)

// worker is a background loop that lives as long as the app.
type worker struct {
	name string
	run  func(ctx context.Context) error
}

type closer struct {
	name  string
	close func() error
}

// App wires telemetry service dependencies.
type App struct {
	server  *httpserver.Server
	workers []worker
	closers []closer
	logger  *zap.Logger
}

// stores groups the four persistence roles; one backend may fill several of them.
type stores struct {
	meters         service.MeterLedger
	vehicles       service.VehicleLedger
	chargerStatus  service.ChargerStatusStore
	vehicleStatus  service.VehicleStatusStore
	tx             service.Transactor
	healthChecks   []handlers.HealthCheck
	connectedCount func() int
}

// New constructs application components. ctx bounds start-up work and the lifetime of
// OCPP sessions.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}
	app, err := a.build(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) (*App, error) {
	ordering, err := cfg.Ordering()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.ConsistencyMode()
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	projector := service.NewStatusProjector(st.chargerStatus, st.vehicleStatus, m, a.logger)
	opts := []service.IngestionOption{service.WithIngestionMetrics(m)}
	switch mode {
	case service.ConsistencyAtomic:
		opts = append(opts, service.WithTransactor(st.tx))
	case service.ConsistencyAsync:
		kafkaCfg := events.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic, GroupID: cfg.Kafka.GroupID}
		publisher, err := events.NewPublisher(kafkaCfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"kafka publisher", publisher.Close})
		consumer, err := events.NewConsumer(kafkaCfg, projector, a.logger)
		if err != nil {
			return nil, err
		}
		a.workers = append(a.workers, worker{"projection consumer", consumer.Run})
		opts = append(opts, service.WithPublisher(publisher))
	}

	ingestion, err := service.NewIngestionService(st.meters, st.vehicles, projector, mode, a.logger, opts...)
	if err != nil {
		return nil, err
	}
	analytics := service.NewAnalyticsService(st.vehicles, st.meters, m, a.logger)

	routes := httpserver.Routes{
		Readings:      handlers.NewReadingsHandlers(ingestion, projector, a.logger),
		Analytics:     handlers.NewAnalyticsHandlers(analytics, a.logger),
		Metrics:       m.Handler(),
		IngestLimit:   middleware.RateLimit(cfg.HTTP.RateLimitPerSecond, cfg.HTTP.RateLimitBurst),
		RequestLogger: middleware.RequestLogger(a.logger, m),
	}

	if cfg.OCPP.Enabled {
		routes.OCPP, st.connectedCount = a.ocppEndpoint(ctx, cfg, ingestion)
	}
	if cfg.MQTTEnabled() {
		sub, err := mqttsub.NewSubscriber(mqttsub.Config{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			QoS:      byte(cfg.MQTT.QoS),
		}, ingestion, a.logger)
		if err != nil {
			return nil, err
		}
		a.workers = append(a.workers, worker{"mqtt subscriber", sub.Run})
	}
	routes.Health = handlers.NewHealthHandler(st.healthChecks, st.connectedCount)

	router := httpserver.NewRouter(routes)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, a.logger,
		httpserver.WithMiddleware(middleware.Recovery(a.logger)),
	)

	a.logger.Info("telemetry service configured",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("projection", cfg.Projection.Backend),
		zap.String("ordering", string(ordering)),
		zap.String("consistency", string(mode)),
		zap.Bool("ocpp", cfg.OCPP.Enabled),
		zap.Bool("mqtt", cfg.MQTTEnabled()),
	)
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	ordering, err := cfg.Ordering()
	if err != nil {
		return nil, err
	}
	st := &stores{}

	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		mem := memstore.New(ordering)
		st.meters, st.vehicles = mem, mem
		st.chargerStatus, st.vehicleStatus = mem, mem
		st.tx = mem
		st.healthChecks = append(st.healthChecks, handlers.HealthCheck{Name: "memory", Check: mem.Ping})
	case config.StorageBackendPostgres:
		sqlDB, err := db.NewPostgres(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"postgres", sqlDB.Close})
		if err := db.Migrate(ctx, sqlDB); err != nil {
			return nil, err
		}
		readings := repository.NewReadingRepository(sqlDB)
		statuses := repository.NewStatusRepository(sqlDB, ordering)
		st.meters, st.vehicles = readings, readings
		st.chargerStatus, st.vehicleStatus = statuses, statuses
		st.tx = repository.NewTxManager(sqlDB)
		st.healthChecks = append(st.healthChecks, handlers.HealthCheck{Name: "postgres", Check: sqlDB.PingContext})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Projection.Backend == config.ProjectionBackendRedis {
		client, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, closer{"redis", client.Close})
		statuses := redisstore.NewStatusStore(client, ordering)
		st.chargerStatus, st.vehicleStatus = statuses, statuses
		st.healthChecks = append(st.healthChecks, handlers.HealthCheck{Name: "redis", Check: statuses.Ping})
	}
	return st, nil
}

// ocppEndpoint builds the charger websocket endpoint and reports the live session count.
func (a *App) ocppEndpoint(ctx context.Context, cfg *config.Config, ingestion *service.IngestionService) (http.Handler, func() int) {
	state := ocpp.NewStationState()
	router := ocpp.NewRouter()
	router.Register(protocol.ActionBootNotification, ocpphandlers.NewBootNotificationHandler(state, a.logger))
	router.Register(protocol.ActionHeartbeat, ocpphandlers.NewHeartbeatHandler(state))
	router.Register(protocol.ActionStatusNotification, ocpphandlers.NewStatusNotificationHandler(state))
	router.Register(protocol.ActionMeterValues, ocpphandlers.NewMeterValuesHandler(ingestion, state, a.logger))
	processor := ocpp.NewProcessor(ocpp.NewParser(), router, a.logger)

	manager := ws.NewManager(cfg.PingInterval(), a.logger)
	a.workers = append(a.workers, worker{"ocpp ping loop", func(ctx context.Context) error {
		manager.Start(ctx)
		return nil
	}})

	wsServer := ws.NewServer(ctx, manager, processor, cfg.WriteTimeout(), a.logger)
	return http.HandlerFunc(wsServer.HandleWS), manager.Count
}

// Handler exposes the full HTTP handler chain.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run serves HTTP and runs the background workers until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(a.workers)+1)
	var wg sync.WaitGroup
	for _, w := range a.workers {
		wg.Add(1)
		go func(w worker) {
			defer wg.Done()
			a.logger.Info("starting worker", zap.String("worker", w.name))
			if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", w.name, err)
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.server.Run(ctx); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.logger.Error("component stopped", zap.Error(runErr))
	}
	cancel()
	wg.Wait()
	return runErr
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("failed to close "+c.name, zap.Error(err))
		}
	}
	a.closers = nil
}
