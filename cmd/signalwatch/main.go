package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hrygo/signalwatch/internal/observability"
	"github.com/hrygo/signalwatch/internal/profile"
	"github.com/hrygo/signalwatch/plugin/ai"
	"github.com/hrygo/signalwatch/server"
	"github.com/hrygo/signalwatch/server/service/event"
	"github.com/hrygo/signalwatch/server/service/watchlist"
	"github.com/hrygo/signalwatch/store"
	"github.com/hrygo/signalwatch/store/cache"
	"github.com/hrygo/signalwatch/store/db"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "signalwatch",
	Short: "Security event watchlists with AI triage, served over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:              viper.GetString("mode"),
			Addr:              viper.GetString("addr"),
			Port:              viper.GetInt("port"),
			Data:              viper.GetString("data"),
			Driver:            viper.GetString("driver"),
			DSN:               viper.GetString("dsn"),
			Version:           version,
			LogLevel:          viper.GetString("log-level"),
			CacheEnabled:      viper.GetBool("cache-enabled"),
			CacheTTL:          viper.GetDuration("cache-ttl"),
			AIEnabled:         viper.GetBool("ai-enabled"),
			OpenAIAPIKey:      viper.GetString("openai-api-key"),
			OpenAIBaseURL:     viper.GetString("openai-base-url"),
			AIModel:           viper.GetString("ai-model"),
			RateLimitGeneral:  viper.GetInt("rate-limit-general"),
			RateLimitAIHourly: viper.GetInt("rate-limit-ai-hourly"),
			RateLimitAIDaily:  viper.GetInt("rate-limit-ai-daily"),
		}
		if err := instanceProfile.Validate(); err != nil {
			return err
		}

		logger := observability.NewLogger(os.Stderr, instanceProfile.LogLevel, instanceProfile.Mode)
		slog.SetDefault(logger)

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx, instanceProfile, logger)
	},
}

func run(ctx context.Context, instanceProfile *profile.Profile, logger *slog.Logger) error {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return errors.Wrap(err, "failed to create db driver")
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	defer func() {
		if err := storeInstance.Close(); err != nil {
			logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()
	if err := storeInstance.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}

	metrics := observability.NewMetrics()
	opts := server.Options{Metrics: metrics, Logger: logger}

	var cacheStore cache.Store = cache.NewNop()
	if instanceProfile.CacheEnabled {
		c := cache.New(cache.Config{
			DefaultTTL: instanceProfile.CacheTTL,
			OnEviction: func(key string, _ any) {
				logger.Debug("cache entry expired", slog.String(observability.LogFieldCacheKey, key))
			},
		})
		cacheStore = c
		opts.Cache = c
	}

	enricher, err := ai.NewEnricher(ai.NewConfigFromProfile(instanceProfile), metrics)
	if err != nil {
		return errors.Wrap(err, "failed to create enricher")
	}

	opts.Watchlists = watchlist.NewService(storeInstance, cacheStore, instanceProfile.CacheTTL)
	opts.Events = event.NewService(storeInstance, opts.Watchlists, enricher, cacheStore, instanceProfile.CacheTTL)

	s, err := server.NewServer(ctx, instanceProfile, opts)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	printGreetings(instanceProfile)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return s.Shutdown(context.Background())
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8080)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of server")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("cache-enabled", true, "cache reads in process memory")
	rootCmd.PersistentFlags().Duration("cache-ttl", cache.DefaultTTL, "lifetime of cached reads")
	rootCmd.PersistentFlags().Bool("ai-enabled", false, "enrich events with an OpenAI-compatible model")
	rootCmd.PersistentFlags().String("openai-api-key", "", "API key of the model provider")
	rootCmd.PersistentFlags().String("openai-base-url", ai.DefaultBaseURL, "base URL of the model provider")
	rootCmd.PersistentFlags().String("ai-model", ai.DefaultModel, "chat model used for enrichment")
	rootCmd.PersistentFlags().Int("rate-limit-general", 100, "API requests per client per 15 minutes, 0 disables")
	rootCmd.PersistentFlags().Int("rate-limit-ai-hourly", 20, "event submissions per client per hour, 0 disables")
	rootCmd.PersistentFlags().Int("rate-limit-ai-daily", 50, "event submissions per client per 24 hours, 0 disables")

	rootCmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		if err := viper.BindPFlag(flag.Name, flag); err != nil {
			panic(err)
		}
	})

	viper.SetEnvPrefix("signalwatch")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("SignalWatch %s started successfully!\n", p.Version)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Mode: %s\n", p.Mode)
	if p.Addr == "" {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
