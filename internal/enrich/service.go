// Package enrich assembles the authoritative records a synthesized document may draw on.
package enrich

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatgptnotes/nabh-online-saas-sub003/constants"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// Store is the read-only operational store.
type Store interface {
	ListActivePatients(ctx context.Context, limit int) ([]entity.PatientRecord, error)
	ListActiveStaff(ctx context.Context) ([]entity.StaffRecord, error)
	ListActiveConsultants(ctx context.Context) ([]entity.ConsultantRecord, error)
}

type Config struct {
	PatientPool     int // most recent patients considered
	PatientSample   int
	EquipmentSample int
	IncidentSample  int
}

func (c Config) withDefaults() Config {
	if c.PatientPool <= 0 {
		c.PatientPool = 20
	}
	if c.PatientSample <= 0 {
		c.PatientSample = 8
	}
	if c.EquipmentSample <= 0 {
		c.EquipmentSample = 5
	}
	if c.IncidentSample <= 0 {
		c.IncidentSample = 3
	}
	return c
}

type Service struct {
	store  Store
	roster Roster
	cfg    Config
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Service)

// WithRand fixes the shuffle source, for reproducible samples.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// NewService wires the store and the fallback roster. store may be nil, in
// which case every call is served from the roster.
func NewService(store Store, roster Roster, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		roster: roster,
		cfg:    cfg.withDefaults(),
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enrich returns the bundle for an evidence category. Staff and consultants are
// always fetched and never empty; patients, equipment and incidents are included
// only when the category matches their keywords. Store failures degrade to the
// roster, so the only error is context cancellation.
func (s *Service) Enrich(ctx context.Context, category string) (entity.EnrichmentBundle, error) {
	start := time.Now()
	var bundle entity.EnrichmentBundle

	wantPatients := constants.MatchesAny(category, constants.PatientKeywords)
	g, gctx := errgroup.WithContext(ctx)
	if wantPatients {
		g.Go(func() error {
			bundle.Patients = s.patients(gctx)
			return gctx.Err()
		})
	}
	g.Go(func() error {
		bundle.Staff = s.staff(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		bundle.Consultants = s.consultants(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return entity.EnrichmentBundle{}, err
	}

	if constants.MatchesAny(category, constants.EquipmentKeywords) {
		bundle.Equipment = sample(s, s.roster.Equipment, s.cfg.EquipmentSample)
	}
	if constants.MatchesAny(category, constants.IncidentKeywords) {
		bundle.Incidents = sample(s, s.roster.Incidents, s.cfg.IncidentSample)
	}

	s.logger.Info("enrich.bundle.ok",
		"category", category,
		"patients", len(bundle.Patients),
		"staff", len(bundle.Staff),
		"consultants", len(bundle.Consultants),
		"equipment", len(bundle.Equipment),
		"incidents", len(bundle.Incidents),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return bundle, nil
}

// patients has no roster fallback: a failed lookup yields no patients.
func (s *Service) patients(ctx context.Context) []entity.PatientRecord {
	if s.store == nil {
		return nil
	}
	rows, err := s.store.ListActivePatients(ctx, s.cfg.PatientPool)
	if err != nil {
		s.logger.Warn("enrich.patients.failed", "error", err)
		return nil
	}
	return sample(s, rows, s.cfg.PatientSample)
}

func (s *Service) staff(ctx context.Context) []entity.StaffRecord {
	if s.store != nil {
		rows, err := s.store.ListActiveStaff(ctx)
		if err == nil && len(rows) > 0 {
			return rows
		}
		s.logger.Warn("enrich.staff.fallback", "error", err, "rows", len(rows))
	}
	return append([]entity.StaffRecord(nil), s.roster.Staff...)
}

func (s *Service) consultants(ctx context.Context) []entity.ConsultantRecord {
	if s.store != nil {
		rows, err := s.store.ListActiveConsultants(ctx)
		if err == nil && len(rows) > 0 {
			return rows
		}
		s.logger.Warn("enrich.consultants.fallback", "error", err, "rows", len(rows))
	}
	return append([]entity.ConsultantRecord(nil), s.roster.Consultants...)
}

// sample shuffles a copy of items and keeps the first n.
func sample[T any](s *Service, items []T, n int) []T {
	if len(items) == 0 || n <= 0 {
		return nil
	}
	out := append([]T(nil), items...)
	s.mu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()
	if n < len(out) {
		out = out[:n]
	}
	return out
}
