// Command devtoken prints a bearer token for local development against the
// configured JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gymdesk/internal/auth"
	"gymdesk/internal/config"
	"gymdesk/internal/logger"
)

func main() {
	userID := flag.Int("user", 0, "member id placed in the token")
	email := flag.String("email", "", "email claim")
	role := flag.String("role", auth.RoleMember, "member, admin, reception or sparta")
	ttl := flag.Duration("ttl", auth.AccessTokenTTL, "token lifetime")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "user is required: -user=42")
		os.Exit(2)
	}
	if *role != auth.RoleMember && !auth.IsStaff(*role) {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Environment == "production" {
		logger.Fatal("Refusing to mint development tokens in production")
	}

	token, err := auth.GenerateAccessToken(*userID, *email, *role, cfg.JWTSecret, *ttl)
	if err != nil {
		logger.Fatalf("Failed to sign token: %v", err)
	}

	logger.Info("Development token issued", "user_id", *userID, "role", *role, "expires_at", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println(token)
}
