package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/config"
	"github.com/iliyamo/university-library/internal/database"
	"github.com/iliyamo/university-library/internal/email"
	"github.com/iliyamo/university-library/internal/handler"
	"github.com/iliyamo/university-library/internal/lending"
	"github.com/iliyamo/university-library/internal/queue"
	"github.com/iliyamo/university-library/internal/repository"
	"github.com/iliyamo/university-library/internal/router"
	"github.com/iliyamo/university-library/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; cache and rate limiting degrade to no-ops
	// when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; cache and rate limiting disabled")
	}

	books := repository.NewBookRepo(db)
	users := repository.NewUserRepo(db)
	transactions := repository.NewTransactionRepo(db)
	reservations := repository.NewReservationRepo(db)
	notifications := repository.NewNotificationRepo(db)
	courses := repository.NewCourseRepo(db)
	papers := repository.NewPaperRepo(db)
	reviews := repository.NewReviewRepo(db)
	recommendations := repository.NewRecommendationRepo(db)
	tokens := repository.NewTokenRepo(db)

	publisher := service.NewNotificationPublisher(cfg.BrokerURL)
	engine := lending.NewEngine(books, users, transactions, reservations, notifications, publisher)

	// Email worker: consume notification events and deliver them.
	var sender email.Sender = email.LogSender{}
	if cfg.SMTPAddr != "" {
		sender = &email.SMTPSender{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		}
	}
	go queue.StartNotificationConsumer(cfg.BrokerURL, func(ev queue.NotificationEvent) error {
		msg, err := email.Render(ev)
		if err != nil {
			return err
		}
		return sender.Send(msg)
	})

	// Background sweeps: expire overdue pickups, send due reminders,
	// prune expired refresh tokens.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.RunSweeper(ctx, time.Duration(cfg.SweepMinutes)*time.Minute)
	go pruneTokens(ctx, tokens, time.Duration(cfg.SweepMinutes)*time.Minute)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Handlers{
		Auth:            handler.NewAuthHandler(cfg, users, tokens),
		Books:           handler.NewBookHandler(books, reviews),
		Lending:         handler.NewLendingHandler(engine, books, transactions, reservations),
		Courses:         handler.NewCourseHandler(courses, books),
		Papers:          handler.NewPaperHandler(cfg, papers, users, notifications, publisher),
		Notifications:   handler.NewNotificationHandler(notifications),
		Recommendations: handler.NewRecommendationHandler(recommendations, books, transactions),
		Dashboard:       handler.NewDashboardHandler(engine),
		Users:           handler.NewUserHandler(users, tokens),
	}, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// pruneTokens periodically removes expired refresh tokens.
func pruneTokens(ctx context.Context, tokens *repository.TokenRepo, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := tokens.DeleteExpired(ctx); err != nil {
				log.Printf("prune tokens: %v", err)
			} else if n > 0 {
				log.Printf("pruned %d expired refresh token(s)", n)
			}
		}
	}
}
