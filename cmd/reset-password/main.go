package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-cyclecount-ws/internal/config"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/pkg/database"
	"go-cyclecount-ws/pkg/jwt"
	"go-cyclecount-ws/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	username := flag.String("username", "", "account to reset")
	password := flag.String("password", "", "new password (min 6 characters)")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: reset-password -username NAME -password NEW_PASSWORD")
		os.Exit(2)
	}

	// 1. Load Env
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fatal("load config", err)
	}
	log := logger.New(logger.Options{ServiceName: "reset-password", Format: "console"})
	ctx := context.Background()

	// 2. Setup Database
	db, err := database.Connect(database.Options{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, LogSQL: cfg.DB.LogSQL})
	if err != nil {
		fatal("connect database", err)
	}
	defer database.Close(db)

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fatal("jwt manager", err)
	}

	// 3. Reset and revoke existing sessions
	auth := service.NewAuthService(repository.NewUserRepo(db), tokens, log)
	if err := auth.ResetPassword(ctx, *username, *password); err != nil {
		fatal("reset password for "+*username, err)
	}

	log.Info(log.WithField(ctx, "username", *username), "password reset; existing sessions revoked")
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
