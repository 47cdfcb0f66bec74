package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sacredheart/pharmacy_shop/internal/config"
	"github.com/sacredheart/pharmacy_shop/internal/es"
	"github.com/sacredheart/pharmacy_shop/internal/handlers"
	"github.com/sacredheart/pharmacy_shop/internal/handlers/order"
	"github.com/sacredheart/pharmacy_shop/internal/logging"
	"github.com/sacredheart/pharmacy_shop/internal/mykafka"
	"github.com/sacredheart/pharmacy_shop/internal/ocr"
	"github.com/sacredheart/pharmacy_shop/internal/service/token"
	httpserver "github.com/sacredheart/pharmacy_shop/internal/transport/http"
	loggingmw "github.com/sacredheart/pharmacy_shop/internal/transport/http/middleware"
)

const medicineIndex = "medicines"

func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:          db,
		AuthHandler: &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		CatalogHandler: &handlers.CatalogHandler{
			DB:       db,
			Producer: prod,
			ES:       esClient,
			Index:    medicineIndex,
		},
		OrderHandler: &order.OrderHandler{DB: db, Producer: prod},
		PrescriptionHandler: &handlers.PrescriptionHandler{
			DB:        db,
			Producer:  prod,
			Extractor: &ocr.DemoExtractor{DB: db},
		},
		SearchHandler: handlers.NewSearchHandler(esClient, medicineIndex),
		TokenService:  &token.TokenService{DB: db, RefreshSecret: refreshSecret, JWTSecret: jwtSecret},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
