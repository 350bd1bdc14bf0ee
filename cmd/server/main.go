package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"english-hub-backend/internal/config"
	"english-hub-backend/internal/database"
	"english-hub-backend/internal/handlers"
	"english-hub-backend/internal/lmsclient"
	"english-hub-backend/internal/middleware"
	"english-hub-backend/internal/repository"
	"english-hub-backend/internal/router"
	"english-hub-backend/internal/services"
	"english-hub-backend/internal/websocket"
	"english-hub-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting English Hub practice backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	lms := lmsclient.New(cfg.LMSAPIURL, cfg.LMSTimeout)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)

	// ──── Step 2: Question Source ────
	var (
		source      services.QuestionSource = lms
		exams       services.ExamSubmitter  = lms
		bankHandler *handlers.BankHandler
	)
	if cfg.UseLocalBank() {
		bankDB, err := database.OpenBankDB(cfg.BankDBPath)
		if err != nil {
			log.Fatalf("✗ Question bank database failed: %v", err)
		}
		defer bankDB.Close()
		bankRepo := repository.NewBankRepo(bankDB)
		source = services.NewLocalSource(bankRepo)
		exams = nil
		bankHandler = handlers.NewBankHandler(bankRepo)
		log.Printf("✓ Local question banks opened (%s)", cfg.BankDBPath)
	} else {
		log.Printf("✓ Questions served by LMS backend (%s)", cfg.LMSAPIURL)
	}

	// ──── Step 3: Redis (sessions, pub/sub, rating queue) ────
	var (
		practiceStore repository.SnapshotStore
		reviewStore   repository.SnapshotStore
		publisher     services.Publisher
		ratingQueue   services.RatingQueue
		workerPool    *worker.Pool
		wsHub         *websocket.Hub
	)
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		log.Println("✓ Redis connected")

		practiceStore = repository.NewRedisStore(redisClients.Data, "practice_session", cfg.SessionTTL)
		reviewStore = repository.NewRedisStore(redisClients.Data, "review_session", cfg.SessionTTL)
		publisher = services.NewRedisPublisher(redisClients.Data)
		ratingQueue = worker.NewRedisQueue(redisClients.Data)
		wsHub = websocket.NewHub(redisClients.PubSub, jwtAuth)

		workerPool = worker.NewPool(redisClients.Data, lms, cfg.WorkerCount)
		workerPool.Start()
		log.Printf("✓ Rating relay started (%d goroutines)", cfg.WorkerCount)
	} else {
		memPractice := repository.NewMemoryStore(cfg.SessionTTL)
		memReview := repository.NewMemoryStore(cfg.SessionTTL)
		defer memPractice.Close()
		defer memReview.Close()
		practiceStore, reviewStore = memPractice, memReview

		wsHub = websocket.NewHub(nil, jwtAuth)
		publisher = wsHub
		ratingQueue = worker.NewInlineQueue(lms)
		log.Println("✓ In-memory sessions (REDIS_URL not set, single instance only)")
	}

	// ──── Step 4: PostgreSQL time log (optional) ────
	var (
		studyLog            services.StudyLog
		studySessionHandler *handlers.StudySessionHandler
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")

		studySessionRepo := repository.NewStudySessionRepo(pool)
		studyLog = studySessionRepo
		studySessionHandler = handlers.NewStudySessionHandler(studySessionRepo)
	} else {
		log.Println("✓ Study-session time log disabled (DATABASE_URL not set)")
	}

	// ──── Step 5: Services & Handlers ────
	practiceService := services.NewPracticeService(source, practiceStore, exams, studyLog, publisher)
	reviewService := services.NewReviewService(lms, reviewStore, ratingQueue, studyLog, publisher)

	limiter := middleware.NewRateLimiter(120, time.Minute)
	defer limiter.Stop()

	r := router.New(
		jwtAuth,
		limiter,
		router.Handlers{
			Practice:     handlers.NewPracticeHandler(practiceService),
			Review:       handlers.NewReviewHandler(reviewService),
			StudySession: studySessionHandler,
			Bank:         bankHandler,
		},
		wsHub,
		cfg.FrontendOrigins,
	)

	// ──── Step 6: Start HTTP Server ────
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		wsHub.Close()
		if workerPool != nil {
			workerPool.Stop()
		}
		close(done)
	}()

	log.Printf("✓ English Hub practice backend ready on http://localhost:%s (%s)", cfg.Port, cfg.Env)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
}
