package router

import (
	"database/sql"
	"net/http"

	"wallet-service/internal/config"
	"wallet-service/internal/handlers"
	"wallet-service/internal/metrics"
	"wallet-service/internal/middleware"
	"wallet-service/internal/models"
	"wallet-service/internal/notify"
	"wallet-service/internal/services"
	"wallet-service/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(db *sql.DB, publisher notify.Publisher, cfg config.Config, logger zerolog.Logger) *mux.Router {
	st := store.NewMySQLStore(db, logger)

	authService := services.NewAuthService(cfg.JWTSecret, logger)
	userService := services.NewUserService(st, logger)
	transferService := services.NewTransferService(st, publisher, services.TransferLimits{
		MaxAmount:  cfg.MaxTransferAmount,
		RateLimit:  cfg.TransferRateLimit,
		RateWindow: cfg.TransferRateWindow,
	}, logger)
	statementService := services.NewStatementService(st, logger)

	authHandler := handlers.NewAuthHandler(userService, authService, logger)
	walletHandler := handlers.NewWalletHandler(transferService, statementService, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(10), 20)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())

	api := r.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.Use(middleware.RequestValidation())
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")

	wallet := api.PathPrefix("/wallet").Subrouter()
	wallet.Use(middleware.Authentication(authService, logger))
	wallet.Use(middleware.RequestValidation())
	wallet.HandleFunc("/transfer", walletHandler.Transfer).Methods("POST")
	wallet.HandleFunc("/balance", walletHandler.GetBalance).Methods("GET")
	wallet.HandleFunc("/statement", walletHandler.GetStatement).Methods("GET")

	admin := wallet.PathPrefix("").Subrouter()
	admin.Use(middleware.RequireRole(string(models.RoleAdmin)))
	admin.HandleFunc("/credit", walletHandler.Credit).Methods("POST")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}
