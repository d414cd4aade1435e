package port

import (
	"context"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
)

// HistoryWriter persists completed matches.
type HistoryWriter interface {
	SaveMatch(ctx context.Context, rec *domain.MatchRecord) error
}

// NopHistory discards every record. It is used when no database is configured.
type NopHistory struct{}

// SaveMatch implements HistoryWriter.
func (NopHistory) SaveMatch(context.Context, *domain.MatchRecord) error { return nil }
