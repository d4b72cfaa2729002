package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hstream-dev/hstream/internal/config"
	"github.com/hstream-dev/hstream/pkg/engine"
	"github.com/hstream-dev/hstream/pkg/middleware"
	"github.com/hstream-dev/hstream/pkg/server"
	"github.com/hstream-dev/hstream/pkg/session"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo application server",
		Long: `Start an hstream server running the built-in demo script.

Configuration is read from hstream.json in the working directory (or
--config). A .env file, if present, is loaded before the config so
store credentials can stay out of version control.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine.
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			var cfg *config.Config
			var err error
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.Load(".")
			}
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to hstream.json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	ttl, err := cfg.TTL()
	if err != nil {
		return err
	}

	engOpts := []engine.Option{
		engine.WithSessionTTL(ttl),
		engine.WithLogger(logger),
	}
	if cfg.Metrics {
		engOpts = append(engOpts, engine.WithObserver(middleware.Recorder{}))
	}
	eng := engine.New(demoScript, store, engOpts...)

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Addr
	srvCfg.StylesheetHref = cfg.StylesheetHref
	srvCfg.SecureCookies = cfg.SecureCookies
	srvCfg.TrustedProxies = cfg.TrustedProxies
	if cfg.Metrics {
		srvCfg.Middleware = append(srvCfg.Middleware, middleware.Prometheus())
		go serveMetrics(logger)
	}
	if cfg.Tracing {
		srvCfg.Middleware = append(srvCfg.Middleware, middleware.OpenTelemetry())
	}

	srv := server.New(eng, srvCfg, logger)

	logger.Info("starting server",
		"addr", cfg.Addr,
		"store", cfg.Store.Driver,
		"ttl", ttl.String())

	return srv.Run(ctx)
}

// serveMetrics exposes the Prometheus registry on a side port.
func serveMetrics(logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":9090", mux); err != nil {
		logger.Error("metrics listener failed", "error", err)
	}
}

// openStore builds the session store selected by the configuration.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return session.NewMemoryStore(), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Addr,
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		var opts []session.RedisStoreOption
		if cfg.Store.Prefix != "" {
			opts = append(opts, session.WithRedisPrefix(cfg.Store.Prefix))
		}
		return session.NewRedisStore(client, opts...), nil

	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		opts := []session.SQLStoreOption{session.WithSQLDialect(session.DialectSQLite)}
		if cfg.Store.TableName != "" {
			opts = append(opts, session.WithSQLTableName(cfg.Store.TableName))
		}
		store := session.NewSQLStore(db, opts...)
		if err := store.CreateTable(ctx); err != nil {
			return nil, fmt.Errorf("create session table: %w", err)
		}
		return store, nil

	case "postgres", "mysql":
		// Only the sqlite driver ships with the CLI. Other databases
		// work through session.NewSQLStore with a driver the embedding
		// program imports itself.
		return nil, fmt.Errorf("store driver %q is not bundled with the hstream command; use session.NewSQLStore from your own main", cfg.Store.Driver)

	case "s3":
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Store.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Store.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		var opts []session.S3StoreOption
		if cfg.Store.Prefix != "" {
			opts = append(opts, session.WithS3Prefix(cfg.Store.Prefix))
		}
		logger.Debug("using s3 session store", "bucket", cfg.Store.Bucket)
		return session.NewS3Store(client, cfg.Store.Bucket, opts...), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// demoScript is the page served by `hstream serve`: a greeter with a
// live character count. It exists to exercise every component kind.
func demoScript(c *engine.Ctx) error {
	c.Nav("", "Home")
	c.Nav("", "About")

	c.Write("", "hstream demo")
	c.RawHTML("<p>Type below; the counter updates without a page reload.</p>")

	name := c.TextInput("name", "Your name")

	greeting := "Hello, stranger."
	if name != "" {
		greeting = fmt.Sprintf("Hello, %s! (%d characters)", name, len(strings.TrimSpace(name)))
	}
	c.Write("greeting", greeting)

	c.Write("clock", "Server time: "+time.Now().Format(time.Kitchen))
	return nil
}
