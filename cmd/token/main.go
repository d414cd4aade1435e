// Command token mints an admin JWT for the /api/v1/admin routes using the
// same JWT_SECRET and JWT_ISSUER as the server.
//
//	go run ./cmd/token -subject ops -ttl 24h
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/middleware"
	"github.com/arturoeanton/go-phrasematch-ollama/pkg/config"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	if err := run(os.Args[1:], config.Load(), os.Stdout); err != nil {
		slog.Error("failed to mint token", "error", err)
		os.Exit(1)
	}
}

func run(args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subject := fs.String("subject", "admin", "token subject recorded in the audit log")
	role := fs.String("role", "admin", "role claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", *ttl)
	}

	token, err := middleware.GenerateJWT(*subject, *role, middleware.JWTConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: *ttl,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
