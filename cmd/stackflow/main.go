package main

import (
	"log"
	"os"

	"github.com/TraderJoe97/stackflow/db"
	"github.com/TraderJoe97/stackflow/internal/auth"
	"github.com/TraderJoe97/stackflow/internal/handlers"
	"github.com/TraderJoe97/stackflow/internal/router"
	"github.com/TraderJoe97/stackflow/internal/scheduler"
	"github.com/TraderJoe97/stackflow/internal/services"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("JWT configuration error: %v", err)
	}

	database, err := db.ConnectDatabase(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(database); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := db.SeedRoles(database); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}
	if err := db.SeedAdminUser(database, os.Getenv("ADMIN_NAME"), os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	hub := handlers.NewHub()
	notifier := &services.Notifier{
		DB:          database,
		Hub:         hub,
		Mailer:      services.NewMailerFromEnv(),
		TemplateDir: "EmailTemplates",
		BaseURL:     os.Getenv("CLIENT_URL"),
	}

	reminders := scheduler.NewReminderScheduler(database, notifier, 0)
	reminders.Start()
	defer reminders.Stop()

	r := router.New(router.Deps{DB: database, Hub: hub, Notifier: notifier})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
