package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/middleware"
	"github.com/arturoeanton/go-phrasematch-ollama/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MintsTokenAcceptedByServer(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s3cret", JWTIssuer: "phrasematch"}
	var out bytes.Buffer

	require.NoError(t, run([]string{"-subject", "ops", "-ttl", "1h"}, cfg, &out))

	claims, err := middleware.ValidateJWT(strings.TrimSpace(out.String()), middleware.JWTConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	})
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestRun_Rejects(t *testing.T) {
	var out bytes.Buffer

	err := run(nil, &config.Config{JWTIssuer: "phrasematch"}, &out)
	assert.ErrorContains(t, err, "JWT_SECRET")

	cfg := &config.Config{JWTSecret: "s3cret", JWTIssuer: "phrasematch"}
	assert.Error(t, run([]string{"-ttl", "-1h"}, cfg, &out))
	assert.Error(t, run([]string{"-bogus"}, cfg, &out))
	assert.Empty(t, out.String())
}
