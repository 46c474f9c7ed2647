// devtoken mints a signed access token for local testing. Login is handled by
// an external identity service in production.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tillkeeper/internal/config"
	"tillkeeper/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	userID := flag.String("user-id", "", "user id claim (uuid of a users row, optional)")
	username := flag.String("username", "dev", "username claim")
	role := flag.String("role", middleware.RoleCashier, "role claim: cashier | supervisor | admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:   *userID,
		Username: *username,
		Role:     *role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWTExpirationHours) * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(signed)
}
