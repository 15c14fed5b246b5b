package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/payment"
)

// DefaultTTL is how long a catalog snapshot stays fresh.
const DefaultTTL = 6 * time.Hour

// Service owns the cached catalog. The snapshot is built lazily on first
// query and replaced by pointer swap, so readers always see either the old
// or the new catalog, never a half-merged one.
type Service struct {
	fetchers []Fetcher
	cfg      *gateway.Config
	ttl      time.Duration
	logger   *slog.Logger

	snapshot atomic.Pointer[Registry]
	mu       sync.Mutex // serializes rebuilds
}

// ServiceOption is a functional option for configuring a Service.
type ServiceOption func(*Service)

// WithTTL overrides the snapshot TTL.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

// WithServiceLogger sets the service logger. Defaults to slog.Default().
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService builds a registry service over the given fetchers.
func NewService(cfg *gateway.Config, fetchers []Fetcher, opts ...ServiceOption) *Service {
	s := &Service{
		fetchers: fetchers,
		cfg:      cfg,
		ttl:      DefaultTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultFetchers builds the standard fetcher set from configured credentials.
// Sources without a credential are skipped entirely (HuggingFace listing
// needs no token and is always included).
func DefaultFetchers(cfg *gateway.Config, logger *slog.Logger) []Fetcher {
	fetchers := []Fetcher{
		NewHuggingFaceFetcher(cfg.ProviderKey(SourceHuggingFace), logger),
	}
	if key := cfg.ProviderKey(SourceOpenAI); key != "" {
		fetchers = append(fetchers, NewOpenAIFetcher(key))
	}
	if key := cfg.ProviderKey(SourceAnthropic); key != "" {
		fetchers = append(fetchers, NewAnthropicFetcher(key))
	}
	if key := cfg.ProviderKey(SourceGoogle); key != "" {
		fetchers = append(fetchers, NewGoogleFetcher(key))
	}
	if key := cfg.ProviderKey(SourceASIOne); key != "" {
		fetchers = append(fetchers, NewASIOneFetcher(key))
	}
	if key := cfg.ProviderKey(SourceASICloud); key != "" {
		fetchers = append(fetchers, NewASICloudFetcher(key))
	}
	if key := cfg.ProviderKey(SourceOpenRouter); key != "" {
		fetchers = append(fetchers, NewOpenRouterFetcher(key))
	}
	if key := cfg.ProviderKey(SourceAIML); key != "" {
		fetchers = append(fetchers, NewAIMLFetcher(key))
	}
	return fetchers
}

// Registry returns the current snapshot, building or rebuilding it when
// missing or stale.
func (s *Service) Registry(ctx context.Context) (*Registry, error) {
	if snap := s.snapshot.Load(); snap != nil && !s.stale(snap) {
		return snap, nil
	}
	return s.rebuild(ctx)
}

// Refresh discards the cached snapshot and rebuilds it immediately.
func (s *Service) Refresh(ctx context.Context) (*Registry, error) {
	s.snapshot.Store(nil)
	return s.rebuild(ctx)
}

func (s *Service) stale(snap *Registry) bool {
	age := time.Since(time.UnixMilli(snap.LastUpdated))
	return age > s.ttl
}

func (s *Service) rebuild(ctx context.Context) (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have rebuilt while we waited on the lock.
	if snap := s.snapshot.Load(); snap != nil && !s.stale(snap) {
		return snap, nil
	}

	started := time.Now()
	var (
		collectMu sync.Mutex
		collected []ModelInfo
		sources   = make(map[string]int)
		wg        sync.WaitGroup
	)

	for _, f := range s.fetchers {
		wg.Add(1)
		go func(f Fetcher) {
			defer wg.Done()
			models, err := f.Fetch(ctx)
			if err != nil {
				// One dead source must not take the whole catalog down.
				s.logger.Warn("model source fetch failed", "source", f.Source(), "error", err)
				return
			}
			collectMu.Lock()
			collected = append(collected, models...)
			sources[f.Source()] += len(models)
			collectMu.Unlock()
		}(f)
	}
	wg.Wait()

	if len(collected) == 0 {
		if snap := s.snapshot.Load(); snap != nil {
			// Keep serving the stale snapshot rather than an empty catalog.
			s.logger.Error("registry rebuild produced no models, keeping stale snapshot")
			return snap, nil
		}
		return nil, fmt.Errorf("%w: no model source returned any models", gateway.ErrSourceUnavailable)
	}

	models := Deduplicate(collected)
	overlayPricing(models)
	for i := range models {
		models[i].Available = s.cfg.SourceAvailable(models[i].Source)
	}

	contributing := make([]string, 0, len(sources))
	for source, n := range sources {
		if n > 0 {
			contributing = append(contributing, source)
		}
	}
	sort.Strings(contributing)

	snap := &Registry{
		Models:      models,
		LastUpdated: time.Now().UnixMilli(),
		Sources:     contributing,
	}
	s.snapshot.Store(snap)

	s.logger.Info("model registry rebuilt",
		"models", len(models),
		"fetched", len(collected),
		"sources", contributing,
		"took", time.Since(started))
	return snap, nil
}

// GetModelInfo finds a model by exact id.
func (s *Service) GetModelInfo(ctx context.Context, id string) (*ModelInfo, error) {
	snap, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}
	if m := snap.Lookup(id); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", gateway.ErrModelNotFound, id)
}

// ModelsBySource filters the catalog to one source.
func (s *Service) ModelsBySource(ctx context.Context, source string) ([]ModelInfo, error) {
	snap, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}
	var models []ModelInfo
	for _, m := range snap.Models {
		if m.Source == source {
			models = append(models, m)
		}
	}
	return models, nil
}

// AvailableModels filters the catalog to models whose source credential is
// configured.
func (s *Service) AvailableModels(ctx context.Context) ([]ModelInfo, error) {
	snap, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}
	var models []ModelInfo
	for _, m := range snap.Models {
		if m.Available {
			models = append(models, m)
		}
	}
	return models, nil
}

// CalculateInferenceCost prices usage against a model's registry pricing.
// Unknown models and models without pricing bill only the platform fee.
func (s *Service) CalculateInferenceCost(ctx context.Context, modelID string, usage gateway.TokenUsage) payment.InferenceCost {
	model, err := s.GetModelInfo(ctx, modelID)
	if err != nil {
		return payment.CostFromRates(0, 0, "", usage)
	}
	return CostForModel(model, usage)
}
