package main

import (
	"chatapp-client/internal/client"
	"chatapp-client/internal/config"
	"chatapp-client/internal/database"
	"chatapp-client/internal/handlers"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/keyValue"
	"chatapp-client/internal/metrics"
	"chatapp-client/internal/models"
	"chatapp-client/internal/snowflake"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const redisPrefix = "chatapp-client"

func setupLogger(cfg *models.ConfigFile) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	if cfg.LogToFile {
		config.OutputPaths = []string{"app.log", "stdout"}
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	config.Level = level

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func setupRedis(cfg *models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: "",
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

type app struct {
	cfg     *models.ConfigFile
	sugar   *zap.SugaredLogger
	client  *client.Client
	archive *database.Archive
	metrics *metrics.Metrics
	cleanup []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func setup(ctx context.Context, configPath string) (*app, error) {
	fmt.Println("Reading config file...")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, sugar: sugar}
	a.cleanup = append(a.cleanup, func() { sugar.Sync() })

	if err := snowflake.Setup(cfg.SnowflakeWorkerID); err != nil {
		a.close()
		return nil, err
	}

	var redisClient *redis.Client
	if !cfg.SelfContained {
		sugar.Info("Connecting to redis...")
		redisClient, err = setupRedis(cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		a.cleanup = append(a.cleanup, func() { redisClient.Close() })
	}

	store := keyValue.New(sugar, redisClient, redisPrefix)
	go store.ExpireLoop(ctx, time.Minute)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	a.metrics = metrics.New(registry)

	h := hub.New(sugar, redisClient, redisPrefix)

	if cfg.ArchiveMessages {
		db, err := database.Setup(cfg, "archive.db", sugar)
		if err != nil {
			a.close()
			return nil, err
		}
		a.cleanup = append(a.cleanup, func() { db.Close() })

		a.archive = database.NewArchive(db, sugar)
		a.archive.Subscribe(h)
	}

	a.client = client.New(cfg, client.Options{Hub: h, Store: store, Metrics: a.metrics}, sugar)
	a.cleanup = append(a.cleanup, func() { a.client.Close() })
	return a, nil
}

// connect opens the gateway and waits for the ready handshake.
func (a *app) connect(ctx context.Context) error {
	ready := make(chan struct{}, 1)
	a.client.Hub.Subscribe(hub.Ready, func(string, any) {
		select {
		case ready <- struct{}{}:
		default:
		}
	})

	if err := a.client.Connect(ctx); err != nil {
		return err
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Mirror the account and serve the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			a.client.Hub.Subscribe(hub.Disconnected, func(_ string, payload any) {
				if p, ok := payload.(hub.DisconnectedPayload); ok && p.Err != nil {
					a.sugar.Warnf("Gateway disconnected: %v", p.Err)
				}
				stop()
			})

			if err := a.connect(ctx); err != nil {
				return err
			}
			a.sugar.Infof("Logged in as %s", a.client.Self().Username)

			if a.cfg.StatusAddress == "" {
				<-ctx.Done()
				return nil
			}
			router := handlers.NewRouter(a.client, a.archive, a.metrics, a.cfg.LogLevel == "debug", a.sugar)
			return handlers.Serve(ctx, a.cfg.StatusAddress, router, a.sugar)
		},
	}
}

func sendCmd(configPath *string) *cobra.Command {
	var destination int64
	var file string
	var tts bool

	cmd := &cobra.Command{
		Use:   "send [content]",
		Short: "Send one message or file and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			a, err := setup(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.connect(ctx); err != nil {
				return err
			}

			var msg *models.Message
			switch {
			case file != "":
				msg, err = a.client.SendFile(ctx, destination, file)
			case len(args) == 1:
				msg, err = a.client.SendMessage(ctx, destination, args[0], tts)
			default:
				return fmt.Errorf("nothing to send")
			}
			if err != nil {
				return err
			}

			fmt.Printf("Sent message %d\n", msg.ID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&destination, "to", 0, "channel, server or user id")
	cmd.Flags().StringVar(&file, "file", "", "file to upload instead of text")
	cmd.Flags().BoolVar(&tts, "tts", false, "send as text to speech")
	cmd.MarkFlagRequired("to")
	return cmd
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "chatapp-client",
		Short:         "Mirrors a chat account into a local cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to the config file")
	rootCmd.AddCommand(runCmd(&configPath), sendCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
