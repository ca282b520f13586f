// internal/services/applications/history.go
package applications

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"student-portal/internal/common/metrics"
	"student-portal/internal/identity"
	"student-portal/internal/models"
	"student-portal/internal/store/documents"
)

// newHistoryBreaker builds the permission-denial circuit breaker for
// history queries. A single denial opens the breaker for the configured
// cooldown; while open, the query is skipped and the dashboard shows an
// empty list instead of hammering the store with calls that will be
// denied again. Only permission denials count as failures: ordinary
// store errors pass through to the caller without opening the breaker.
func (s *Service) newHistoryBreaker() *gobreaker.CircuitBreaker[[]models.Application] {
	return gobreaker.NewCircuitBreaker[[]models.Application](gobreaker.Settings{
		Name:    "application-history",
		Timeout: s.config.HistoryCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, documents.ErrPermissionDenied)
		},
	})
}

// History returns the caller's submitted applications, newest known
// first as stored. On permission denial the failure is logged once and
// an empty result is returned for the cooldown window.
func (s *Service) History(ctx context.Context, caller *identity.Caller) ([]models.Application, error) {
	if err := identity.RequireVerified(caller); err != nil {
		return nil, err
	}

	apps, err := s.breaker.Execute(func() ([]models.Application, error) {
		return s.queryHistory(ctx, caller)
	})

	if errors.Is(err, gobreaker.ErrOpenState) {
		metrics.HistoryCooldownSkips.Inc()
		return []models.Application{}, nil
	}
	if errors.Is(err, documents.ErrPermissionDenied) {
		// Logged here, at trip time; the skips during the cooldown stay quiet.
		s.logger.Warn("application history query denied, cooling down", map[string]interface{}{
			"ownerId":  caller.ID,
			"cooldown": s.config.HistoryCooldown.String(),
		})
		return []models.Application{}, nil
	}
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *Service) queryHistory(ctx context.Context, caller *identity.Caller) ([]models.Application, error) {
	docs, err := s.store.Query(ctx, ApplicationCollection, documents.Document{
		"ownerId": caller.ID,
	}, 50)
	if err != nil {
		return nil, err
	}

	apps := make([]models.Application, 0, len(docs))
	for _, doc := range docs {
		var app models.Application
		if err := documents.Decode(doc, &app); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}
