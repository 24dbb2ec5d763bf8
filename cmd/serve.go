package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/api"
	"github.com/sells-group/crop-advisor/internal/auth"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation HTTP API",
	Long:  "Runs the HTTP API for crop recommendations, growing plans, weather lookups, soil health and user accounts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if !env.Classifier.Ready() && cfg.Model.TrainOnStartup {
			zap.L().Info("serve: no saved model, training in background")
			env.Classifier.TriggerTraining()
		}

		sweeper := auth.NewSweeper(env.Store, time.Duration(cfg.Auth.SweepIntervalMinutes)*time.Minute)
		go sweeper.Run(ctx)

		router := api.NewRouter(api.Deps{
			Recommender:    env.Engine,
			Weather:        env.Weather,
			Crops:          env.Crops,
			Model:          env.Classifier,
			Auth:           env.Auth,
			Metrics:        env.Metrics,
			Store:          env.Store,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		})

		srv := api.NewServer(cfg.Server.Port, router,
			time.Duration(cfg.Server.ReadTimeoutSecs)*time.Second,
			time.Duration(cfg.Server.WriteTimeoutSecs)*time.Second,
			time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second,
		)

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("model_status", string(env.Classifier.Status())),
		)
		if err := srv.Run(ctx); err != nil {
			return err
		}
		zap.L().Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 5001, "HTTP server port")
	rootCmd.AddCommand(serveCmd)
}
