package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/studentinfo/internal/pkg/filestorage"
	"github.com/yigit/studentinfo/internal/pkg/metrics"
)

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	Scanned    int `json:"scanned"`
	Referenced int `json:"referenced"`
	Recent     int `json:"recent"`
	Removed    int `json:"removed"`
	Failed     int `json:"failed"`
}

// ReconcileService removes stored artifacts that no student references
type ReconcileService interface {
	ReconcileOrphans(ctx context.Context, gracePeriod time.Duration) (ReconcileReport, error)
}

type reconcileServiceImpl struct {
	students StudentStore
	store    filestorage.ArtifactStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReconcileService creates a new reconcile service instance
func NewReconcileService(students StudentStore, store filestorage.ArtifactStore, m *metrics.Metrics, lgr zerolog.Logger) ReconcileService {
	return &reconcileServiceImpl{
		students: students,
		store:    store,
		metrics:  m,
		logger:   lgr.With().Str("component", "reconciler").Logger(),
		now:      time.Now,
	}
}

// ReconcileOrphans removes every unreferenced artifact older than gracePeriod.
// Younger ones may belong to an add or update that has stored its files but not yet committed its row.
func (s *reconcileServiceImpl) ReconcileOrphans(ctx context.Context, gracePeriod time.Duration) (ReconcileReport, error) {
	defer s.metrics.ObserveOperation("reconcile_orphans", time.Now())

	var report ReconcileReport

	// Artifacts are listed before refs: a file stored after this listing is never considered,
	// and a file listed here whose row commits later is covered by the grace period.
	artifacts, err := s.store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list artifacts: %w", err)
	}
	refs, err := s.students.ListArtifactRefs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list artifact refs: %w", err)
	}

	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[ref] = struct{}{}
	}

	cutoff := s.now().Add(-gracePeriod)
	for _, artifact := range artifacts {
		report.Scanned++
		if _, ok := referenced[artifact.Ref]; ok {
			report.Referenced++
			continue
		}
		if artifact.ModTime.After(cutoff) {
			report.Recent++
			continue
		}

		err := s.store.Remove(ctx, artifact.Ref)
		s.metrics.ArtifactRemoved(err)
		if err != nil {
			report.Failed++
			s.logger.Warn().Err(err).Str("ref", artifact.Ref).Msg("Failed to remove orphaned artifact")
			continue
		}
		report.Removed++
	}

	s.metrics.Reconciled(report.Removed)
	s.logger.Info().
		Int("scanned", report.Scanned).
		Int("removed", report.Removed).
		Int("failed", report.Failed).
		Int("recent", report.Recent).
		Msg("Orphan reconciliation finished")

	return report, nil
}
