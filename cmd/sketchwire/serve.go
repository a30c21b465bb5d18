package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sketchwire/sketchwire/internal/config"
	"github.com/sketchwire/sketchwire/pkg/persist"
	"github.com/sketchwire/sketchwire/pkg/relay"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		address    string
		backend    string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long: `Start the canvas relay server.

Configuration is read from sketchwire.json in the working directory
(or --config). Flags override the file.

Examples:
  sketchwire serve
  sketchwire serve --address=:8080
  sketchwire serve --backend=redis`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, address, backend, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to configuration file")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (default from sketchwire.json)")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Snapshot backend: file, memory, redis, s3, none")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func runServe(configPath, address, backend string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Address = address
	}
	if backend != "" {
		cfg.Persistence.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := buildSnapshotStore(cfg)
	if err != nil {
		return err
	}

	opts := []relay.Option{relay.WithLogger(logger)}
	if store != nil {
		opts = append(opts, relay.WithSnapshotStore(store))
	}

	srv := relay.New(&relay.Config{
		Address:           cfg.Address,
		MaxSessions:       cfg.Relay.MaxSessions,
		MaxLogEntries:     cfg.Relay.MaxLogEntries,
		HeartbeatInterval: cfg.Heartbeat(),
		ShutdownTimeout:   cfg.ShutdownTimeout(),
		PersistQuiescence: cfg.Quiescence(),
	}, opts...)

	logger.Info("starting sketchwire",
		"version", version,
		"address", cfg.Address,
		"backend", cfg.Persistence.Backend)

	return srv.Run()
}

// buildSnapshotStore constructs the configured snapshot backend, or
// nil when persistence is disabled.
func buildSnapshotStore(cfg *config.Config) (persist.SnapshotStore, error) {
	switch cfg.Persistence.Backend {
	case config.BackendNone:
		return nil, nil

	case config.BackendMemory:
		return persist.NewMemoryStore(), nil

	case config.BackendFile:
		return persist.NewFileStore(cfg.Persistence.Path)

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Persistence.Redis.Addr,
			Password: cfg.Persistence.Redis.Password,
			DB:       cfg.Persistence.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis: ping %s: %w", cfg.Persistence.Redis.Addr, err)
		}
		var opts []persist.RedisOption
		if cfg.Persistence.Redis.Key != "" {
			opts = append(opts, persist.WithRedisKey(cfg.Persistence.Redis.Key))
		}
		return persist.NewRedisStore(client, opts...), nil

	case config.BackendS3:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Persistence.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Persistence.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("s3: load aws config: %w", err)
		}
		var opts []persist.S3Option
		if cfg.Persistence.S3.Key != "" {
			opts = append(opts, persist.WithS3Key(cfg.Persistence.S3.Key))
		}
		return persist.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Persistence.S3.Bucket, opts...), nil

	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
	}
}
