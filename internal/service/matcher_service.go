package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/eventlog"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/metrics"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/similarity"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Matcher states.
const (
	StateIdle         = "idle"
	StateInitializing = "initializing"
	StateReady        = "ready"
)

// DefaultPhrases are the reference phrases used when none are configured.
var DefaultPhrases = []string{
	"How do I reset my password?",
	"Where is customer support?",
	"I need help with my bill.",
	"Tell me about your product features.",
	"What are your operating hours?",
}

// Match is the outcome of a successful query.
type Match struct {
	domain.MatchResult
	Comparisons []domain.Comparison `json:"comparisons"`
	Model       string              `json:"model"`
	Duration    time.Duration       `json:"-"`
}

// MatcherOptions tunes a MatcherService.
type MatcherOptions struct {
	Phrases         []string
	InitConcurrency int           // parallel reference embeds when the provider cannot batch
	QueryTimeout    time.Duration // 0 = wait for the provider indefinitely
	History         port.HistoryWriter
	Events          *eventlog.Log
}

// MatcherService owns the embedding provider and the reference cache.
// The cache is written once by Initialize and read-only afterwards.
type MatcherService struct {
	provider port.EmbeddingProvider
	phrases  []string
	opts     MatcherOptions
	events   *eventlog.Log
	history  port.HistoryWriter

	mu         sync.RWMutex
	state      string
	references []domain.ReferenceEntry
}

// NewMatcherService creates a matcher over provider. Initialize must be
// called before Query succeeds.
func NewMatcherService(provider port.EmbeddingProvider, opts MatcherOptions) *MatcherService {
	phrases := opts.Phrases
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	if opts.InitConcurrency <= 0 {
		opts.InitConcurrency = 1
	}
	events := opts.Events
	if events == nil {
		events = eventlog.New(eventlog.DefaultSize)
	}
	history := opts.History
	if history == nil {
		history = port.NopHistory{}
	}

	return &MatcherService{
		provider: provider,
		phrases:  append([]string(nil), phrases...),
		opts:     opts,
		events:   events,
		history:  history,
		state:    StateIdle,
	}
}

// Events returns the matcher's event log.
func (s *MatcherService) Events() *eventlog.Log {
	return s.events
}

// ModelName returns the provider model.
func (s *MatcherService) ModelName() string {
	return s.provider.ModelName()
}

// State returns idle, initializing or ready.
func (s *MatcherService) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether the reference cache is populated.
func (s *MatcherService) Ready() bool {
	return s.State() == StateReady
}

// References returns a copy of the reference cache. It is empty until ready.
func (s *MatcherService) References() []domain.ReferenceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ReferenceEntry, len(s.references))
	copy(out, s.references)
	return out
}

// Phrases returns the configured reference phrases.
func (s *MatcherService) Phrases() []string {
	return append([]string(nil), s.phrases...)
}

// Initialize readies the provider and embeds every reference phrase once.
// It is a no-op while another Initialize is running or after success.
// On failure the matcher returns to idle so Initialize may be retried.
func (s *MatcherService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = StateInitializing
	s.mu.Unlock()

	refs, err := s.initialize(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateIdle
		metrics.Ready.Set(0)
		return err
	}
	s.references = refs
	s.state = StateReady
	metrics.Ready.Set(1)
	return nil
}

func (s *MatcherService) initialize(ctx context.Context) ([]domain.ReferenceEntry, error) {
	start := time.Now()
	s.events.Infof("Loading embedding model %s...", s.provider.ModelName())
	slog.Info("initializing embedding provider", "model", s.provider.ModelName(), "phrases", len(s.phrases))

	if err := s.provider.Init(ctx); err != nil {
		if !errors.Is(err, port.ErrProviderInit) {
			err = fmt.Errorf("%w: %w", port.ErrProviderInit, err)
		}
		s.events.Errorf("Failed to load model: %v", err)
		slog.Error("provider init failed", "model", s.provider.ModelName(), "error", err)
		return nil, err
	}
	s.events.Successf("Model loaded successfully!")

	s.events.Infof("Calculating embeddings for reference phrases...")
	refs, err := s.embedReferences(ctx)
	if err != nil {
		s.events.Errorf("Failed to embed reference phrases: %v", err)
		slog.Error("reference embedding failed", "error", err)
		return nil, err
	}

	s.events.Successf("Reference phrase embeddings calculated.")
	slog.Info("matcher ready", "model", s.provider.ModelName(), "phrases", len(refs), "dimension", dimension(refs), "duration", time.Since(start))
	return refs, nil
}

// embedReferences embeds every phrase in one batch when the provider supports
// it, and otherwise one phrase per call with bounded concurrency.
func (s *MatcherService) embedReferences(ctx context.Context) ([]domain.ReferenceEntry, error) {
	refs := make([]domain.ReferenceEntry, len(s.phrases))

	if batcher, ok := s.provider.(port.BatchEmbedder); ok {
		start := time.Now()
		embs, err := batcher.EmbedBatch(ctx, s.phrases)
		metrics.EmbedLatency.WithLabelValues("reference").Observe(float64(time.Since(start).Milliseconds()))
		if err != nil {
			return nil, fmt.Errorf("%w: reference phrases: %w", port.ErrProviderInit, err)
		}
		if len(embs) != len(s.phrases) {
			return nil, fmt.Errorf("%w: got %d reference embeddings for %d phrases", port.ErrProviderInit, len(embs), len(s.phrases))
		}
		for i, phrase := range s.phrases {
			refs[i] = domain.ReferenceEntry{Label: phrase, Embedding: embs[i]}
			s.events.Infof("Embedded phrase: %q", eventlog.Truncate(phrase, 30))
		}
		return refs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.InitConcurrency)
	for i, phrase := range s.phrases {
		g.Go(func() error {
			start := time.Now()
			emb, err := s.provider.Embed(gctx, phrase)
			metrics.EmbedLatency.WithLabelValues("reference").Observe(float64(time.Since(start).Milliseconds()))
			if err != nil {
				return fmt.Errorf("%w: reference phrase %q: %w", port.ErrProviderInit, phrase, err)
			}
			refs[i] = domain.ReferenceEntry{Label: phrase, Embedding: emb}
			s.events.Infof("Embedded phrase: %q", eventlog.Truncate(phrase, 30))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// Query embeds text and returns the most similar reference phrase.
func (s *MatcherService) Query(ctx context.Context, text string) (*Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.events.Infof("Validation: input text is empty.")
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeValidation).Inc()
		return nil, port.ErrValidation
	}

	s.mu.RLock()
	ready := s.state == StateReady
	refs := s.references
	s.mu.RUnlock()
	if !ready {
		s.events.Errorf("Attempted to match before the model was loaded.")
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeNotReady).Inc()
		return nil, port.ErrNotReady
	}

	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	s.events.Infof("User input received: %q", eventlog.Truncate(text, 50))

	query, err := s.provider.Embed(ctx, text)
	metrics.EmbedLatency.WithLabelValues("query").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if !errors.Is(err, port.ErrEmbedding) {
			err = fmt.Errorf("%w: %w", port.ErrEmbedding, err)
		}
		s.events.Errorf("Failed to embed input: %v", err)
		slog.Error("query embed failed", "error", err)
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeEmbedding).Inc()
		return nil, err
	}
	if d := dimension(refs); d > 0 && len(query) != d {
		err := fmt.Errorf("%w: dimension %d does not match reference dimension %d", port.ErrEmbedding, len(query), d)
		s.events.Errorf("Failed to embed input: %v", err)
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeEmbedding).Inc()
		return nil, err
	}

	scores := similarity.Scores(query, refs)
	for _, c := range scores {
		s.events.Infof("Compared with %q: similarity = %.4f", eventlog.Truncate(c.Label, 30), c.Score)
	}
	best := similarity.Best(scores)
	elapsed := time.Since(start)

	s.events.Successf("Best match: %q with score %.4f.", eventlog.Truncate(best.Label, 30), best.Score)
	slog.Info("match", "label", best.Label, "score", best.Score, "duration", elapsed)
	metrics.QueriesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.MatchScore.Observe(best.Score)

	rec := &domain.MatchRecord{
		ID:         uuid.NewString(),
		InputText:  text,
		Label:      best.Label,
		Score:      best.Score,
		Model:      s.provider.ModelName(),
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if err := s.history.SaveMatch(context.WithoutCancel(ctx), rec); err != nil {
		slog.Error("failed to save match history", "error", err)
	}

	return &Match{
		MatchResult: best,
		Comparisons: scores,
		Model:       s.provider.ModelName(),
		Duration:    elapsed,
	}, nil
}

func dimension(refs []domain.ReferenceEntry) int {
	for _, r := range refs {
		if r.HasEmbedding() {
			return len(r.Embedding)
		}
	}
	return 0
}
