package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"equipment-api/internal/audit"
	"equipment-api/internal/auth"
	"equipment-api/internal/config"
	ingest "equipment-api/internal/equipment/application"
	equipmentpostgres "equipment-api/internal/equipment/infrastructure/postgres"
	equipmenthttp "equipment-api/internal/equipment/interfaces/http"
	"equipment-api/internal/observability/metrics"
	userspostgres "equipment-api/internal/users/infrastructure/postgres"
	usershttp "equipment-api/internal/users/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	readingRepo := equipmentpostgres.NewReadingRepository(db)
	ingestService, err := ingest.NewService(readingRepo, logger)
	if err != nil {
		logger.Fatalf("ingest service error: %v", err)
	}

	equipmentHandler, err := equipmenthttp.NewHandler(readingRepo, logger)
	if err != nil {
		logger.Fatalf("equipment handler error: %v", err)
	}
	uploadHandler, err := equipmenthttp.NewUploadHandler(ingestService, auditRepo, logger, cfg.UploadMaxBytes)
	if err != nil {
		logger.Fatalf("upload handler error: %v", err)
	}
	exportHandler, err := equipmenthttp.NewExportHandler(readingRepo, logger)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}

	userRepo := userspostgres.NewUserRepository(db)
	tokenTTL := time.Duration(cfg.TokenTimeoutMins) * time.Minute
	userHandler, err := usershttp.NewHandler(userRepo, auditRepo, logger, []byte(cfg.JWTSecret), tokenTTL)
	if err != nil {
		logger.Fatalf("users handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/validatetoken"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/equipment", equipmentHandler)
	mux.Handle("/equipment/upload", uploadHandler)
	mux.Handle("/equipment/export", exportHandler)
	mux.Handle("/register", userHandler)
	mux.Handle("/login", userHandler)
	mux.Handle("/validatetoken", usershttp.NewValidateTokenHandler(logger))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
