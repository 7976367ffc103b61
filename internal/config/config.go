package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUrl     string
	Port      string
	JWTSecret string
	AMQPUrl   string

	// Transfer engine limits.
	MaxTransferAmount  float64
	TransferRateLimit  int
	TransferRateWindow time.Duration
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, falling back to environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		DBUrl:              os.Getenv("DB_URL"),
		Port:               port,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		AMQPUrl:            os.Getenv("AMQP_URL"),
		MaxTransferAmount:  envFloat("MAX_TRANSFER_AMOUNT", 10000),
		TransferRateLimit:  envInt("TRANSFER_RATE_LIMIT", 10),
		TransferRateWindow: envDuration("TRANSFER_RATE_WINDOW", time.Hour),
	}
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
