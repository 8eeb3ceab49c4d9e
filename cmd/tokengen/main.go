// Command tokengen signs a bearer token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/auth"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/config"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	userID := flag.Int("user-id", 1, "user id carried in the token")
	name := flag.String("name", "admin", "display name")
	email := flag.String("email", "admin@pneushop.local", "email")
	role := flag.String("role", auth.RoleAdmin, "admin or customer")
	secret := flag.String("secret", cfg.Auth.JWTSecret, "HMAC signing secret")
	ttl := flag.Duration("ttl", cfg.Auth.TokenTTL(), "token lifetime")
	flag.Parse()

	if *role != auth.RoleAdmin && *role != auth.RoleCustomer {
		log.Fatal().Str("role", *role).Msg("Unknown role")
	}
	if *ttl <= 0 {
		*ttl = 24 * time.Hour
	}

	token, err := auth.IssueToken(*secret, &auth.JwtCustomClaims{
		UserID: *userID,
		Name:   *name,
		Email:  *email,
		Role:   *role,
	}, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}
