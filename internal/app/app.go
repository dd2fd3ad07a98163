package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Tripboard/internal/auth"
	"Tripboard/internal/cache"
	"Tripboard/internal/config"
	dom "Tripboard/internal/domain"
	"Tripboard/internal/handlers"
	"Tripboard/internal/metrics"
	"Tripboard/internal/reminder"
	"Tripboard/internal/repo"
	"Tripboard/internal/service"
	"Tripboard/internal/share"
	"Tripboard/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	cfg       config.Config
	log       zerolog.Logger
	store     cache.Store
	session   auth.Session
	registry  *prometheus.Registry
	svc       *service.TaskService
	hub       *handlers.Hub
	scheduler *reminder.Scheduler
	router    *gin.Engine
}

// New opens the local cache, resolves the launch link and starts the trip session.
// A remote that cannot be reached is not an error; the session runs locally.
func New(ctx context.Context, cfg config.Config, link string, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	var configured cache.Credentials
	if cfg.Remote.HasRemote() {
		configured = cache.Credentials{URL: cfg.Remote.URL, Key: cfg.Remote.Key}
	} else if cfg.Remote.URL != "" || cfg.Remote.Key != "" {
		log.Warn().Msg("REMOTE_URL and REMOTE_KEY must be set together, ignoring them")
	}
	resolver := &auth.Resolver{
		DefaultTrip: cfg.Trip.ID,
		Config:      configured,
		Store:       store,
		Log:         log,
	}
	sess, err := resolver.Resolve(ctx, link)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.session = sess

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	a.svc = service.NewTaskService(service.Options{
		TripID:       sess.TripID,
		Cache:        cache.NewTripCache(store, sess.TripID),
		Log:          log,
		Metrics:      m,
		SeedOnEmpty:  cfg.Trip.SeedOnEmpty,
		WriteTimeout: cfg.Remote.WriteTimeout.Duration(),
	})
	a.hub = handlers.NewHub(a.svc, log)

	var dial service.Dialer
	if sess.HasRemote() {
		log.Info().Str("source", string(sess.Source)).Msg("remote credentials resolved")
		dial = newDialer(cfg.Remote, sess.Credentials, log)
	}
	a.svc.Start(ctx, dial)

	a.scheduler = reminder.New(a.svc, a.channels(), reminder.Options{
		Interval:   cfg.Reminder.Interval.Duration(),
		TimeLayout: cfg.Reminder.TimeLayout,
		Log:        log,
		Metrics:    m,
	})
	a.router = newRouter(cfg, a)
	return a, nil
}

func (a *App) channels() []reminder.Channel {
	chans := []reminder.Channel{reminder.LogChannel{Log: a.log}, a.hub}
	if a.cfg.Reminder.Bell {
		chans = append(chans, reminder.NewBellChannel())
	}
	if a.cfg.Reminder.Desktop {
		chans = append(chans, reminder.NewDesktopChannel())
	}
	return chans
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Session() auth.Session {
	return a.session
}

func (a *App) Service() *service.TaskService {
	return a.svc
}

// PendingShare decodes the share token carried by the launch link, if any.
// The caller applies it only after the user confirms.
func (a *App) PendingShare() (dom.Snapshot, bool, error) {
	if a.session.ShareToken == "" {
		return dom.Snapshot{}, false, nil
	}
	snap, err := share.Decode(a.session.ShareToken)
	if err != nil {
		return dom.Snapshot{}, false, err
	}
	return snap, true, nil
}

// StartReminders starts the reminder scheduler.
func (a *App) StartReminders(ctx context.Context) {
	a.scheduler.Start(ctx)
}

// Close stops reminders and the event feed, then ends the session. ctx bounds how
// long queued remote writes may take to drain.
func (a *App) Close(ctx context.Context) error {
	a.scheduler.Stop()
	a.hub.Close()
	var errs []error
	if err := a.svc.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close session: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	return errors.Join(errs...)
}

func newStore(cfg config.Config) (cache.Store, error) {
	if cfg.Cache.Backend == "redis" {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(rdb, cfg.Redis.Prefix, cfg.Redis.DefaultTTL.Duration()), nil
	}
	fs, err := cache.NewFileStore(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// newDialer connects to the remote Postgres with key as the password and applies
// migrations before the session touches it.
func newDialer(cfg config.RemoteConfig, creds cache.Credentials, log zerolog.Logger) service.Dialer {
	return func(ctx context.Context) (repo.Remote, error) {
		dsn, err := utils.PostgresDSN(creds.URL, creds.Key)
		if err != nil {
			return nil, fmt.Errorf("remote url: %w", err)
		}
		pool, err := newPostgres(ctx, dsn, cfg.ConnectTimeout.Duration())
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := repo.Migrate(dsn); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return repo.NewPGRemote(pool, log), nil
	}
}

func newPostgres(ctx context.Context, dsn string, timeout time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	// One connection stays checked out for LISTEN.
	cfg.MaxConns = 6
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.ConnConfig.ConnectTimeout = timeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(cfg config.Config, a *App) *gin.Engine {
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Trip-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, a)
	return r
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("trip", auth.TripIDFromContext(c)).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	}
}
