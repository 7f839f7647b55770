// Package main выпускает JWT для локальной разработки.
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/devtoken -user 6f1c... -email me@example.com
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/flow-builder/internal/config"
	"github.com/magabrotheeeer/flow-builder/internal/lib/jwt"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
)

func main() {
	userID := flag.String("user", "", "user id (random uuid if empty)")
	email := flag.String("email", "dev@example.com", "email claim")
	role := flag.String("role", jwt.RoleUser, "role claim: user or admin")
	flag.Parse()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *userID == "" {
		*userID = uuid.NewString()
	}

	token, err := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL).GenerateToken(*userID, *email, *role)
	if err != nil {
		logger.Error("failed to generate token", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("token issued", slog.String("user_id", *userID), slog.String("role", *role))
	fmt.Println(token)
}
