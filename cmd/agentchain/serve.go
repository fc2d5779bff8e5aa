package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"agentchain/internal/config"
	"agentchain/internal/router"
	"agentchain/internal/services"
	"agentchain/internal/store"
	"agentchain/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the HTTP API. With the postgres driver the schema is migrated on startup unless --migrate=false; in that case run `agentchain migrate` first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	log := slog.With(slog.String("module", "main"))

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Trace)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	st, closeStore, err := openStore(cfg.Storage, serveMigrate)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closePublisher()

	svc, err := buildServices(st, publisher, cfg)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == config.DriverMemory {
		// 内存存储每次启动都是空的
		if _, err := svc.Admin.Setup(ctx); err != nil {
			return err
		}
	}

	gin.SetMode(cfg.Server.Mode)
	opts := router.Options{AdminSecret: cfg.Server.AdminSecret}
	if cfg.Trace.Enabled {
		opts.ServiceName = cfg.Trace.ServiceName
	}
	if opts.AdminSecret == "" {
		log.Warn("ADMIN_SECRET is not set, admin routes are disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.New(svc, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("AgentChain server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// openPublisher 配置了 redis 时推送通知，否则不推送
func openPublisher(ctx context.Context, cfg config.Redis) (services.Publisher, func(), error) {
	if cfg.Addr == "" {
		return services.NopPublisher{}, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, errors.Wrap(err, "connect redis")
	}

	pub := services.NewRedisPublisher(rdb)
	return pub, func() {
		pub.Close()
		_ = rdb.Close()
	}, nil
}

func buildServices(st store.Store, publisher services.Publisher, cfg config.Config) (router.Services, error) {
	ranking, err := services.NewRankingService(st)
	if err != nil {
		return router.Services{}, err
	}
	fetcher := services.NewOEmbedClient(cfg.OEmbed.Endpoint, cfg.OEmbed.Timeout, cfg.OEmbed.CacheTTL)

	return router.Services{
		Agents:        services.NewAgentService(st, cfg.Server.BaseURL),
		Verification:  services.NewVerificationService(st, fetcher),
		Posts:         services.NewPostService(st, ranking),
		Comments:      services.NewCommentService(st, ranking, publisher),
		Votes:         services.NewVoteService(st, ranking, publisher),
		Channels:      services.NewChannelService(st),
		Notifications: services.NewNotificationService(st),
		Admin:         services.NewAdminService(st),
	}, nil
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Run database migrations before serving (postgres only)")
}
