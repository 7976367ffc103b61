package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"wallet-service/internal/config"
	"wallet-service/internal/db"
	"wallet-service/internal/logger"
	"wallet-service/internal/notify"
	"wallet-service/internal/router"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger()
	log.Info().Msg("Starting wallet service")

	database := db.InitDB(cfg.DBUrl)
	defer database.Close()

	db.RunMigrations(database)

	var publisher notify.Publisher
	if cfg.AMQPUrl != "" {
		p, err := notify.NewRabbitMQPublisher(cfg.AMQPUrl)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		publisher = p
	} else {
		log.Warn().Msg("AMQP_URL not set, notification events will only be logged")
		publisher = notify.NewLogPublisher(log)
	}
	defer publisher.Close()

	r := router.SetupRouter(database, publisher, cfg, log)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Info().Msg("Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
