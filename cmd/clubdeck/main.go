package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/clubdeck/clubdeck/db"
	"github.com/clubdeck/clubdeck/internal/auth"
	"github.com/clubdeck/clubdeck/internal/handlers"
	"github.com/clubdeck/clubdeck/internal/push"
	"github.com/clubdeck/clubdeck/internal/router"
	"github.com/clubdeck/clubdeck/internal/store"
	"github.com/clubdeck/clubdeck/internal/stream"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize JWT: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	broker := stream.NewBroker()
	notifications := store.NewNotificationStore(db.DB, broker)
	subscriptions := store.NewSubscriptionStore(db.DB)

	pusher := push.NewSender(
		subscriptions,
		os.Getenv("VAPID_PUBLIC_KEY"),
		os.Getenv("VAPID_PRIVATE_KEY"),
		os.Getenv("VAPID_SUBSCRIBER"),
	)

	if !pusher.Configured() {
		log.Println("VAPID keys not set, push delivery disabled")
	}

	handlers.Configure(notifications, subscriptions, pusher, broker)

	r := router.NewRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
