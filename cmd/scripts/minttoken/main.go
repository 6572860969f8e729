// Command minttoken prints a bearer token signed with JWT_SECRET, for local
// testing of the user and operator routes.
//
//	go run ./cmd/scripts/minttoken -sub op-1 -role admin
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/config"
	"github.com/ArowuTest/crownbid-backend/pkg/jwt"
	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "", "token subject (candidate key or operator uid)")
	email := flag.String("email", "", "email claim")
	role := flag.String("role", "", `role claim; "admin" grants the operator routes`)
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to JWT_EXPIRESIN")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-sub is required")
	}
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(cfg.JWT.ExpiresIn) * time.Second
	}

	token, err := jwt.NewTokenService(cfg.JWT.Secret, lifetime).Issue(*subject, *email, *role)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
