package service

import (
	"context"
	"slices"

	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

// StatusTransitioner moves a request between statuses.
type StatusTransitioner interface {
	TransitionStatus(ctx context.Context, in TransitionInput) (*domain.Request, error)
}

// TransitionGuard rejects status changes missing from an allowed-transition
// table before delegating to the wrapped transitioner. Statuses absent from
// the table as a source are unrestricted, and re-applying the current status
// is always allowed.
type TransitionGuard struct {
	next     StatusTransitioner
	requests repository.RequestRepository
	allowed  map[int64][]int64
}

// NewTransitionGuard wraps next with the given table.
func NewTransitionGuard(next StatusTransitioner, requests repository.RequestRepository, allowed map[int64][]int64) *TransitionGuard {
	if allowed == nil {
		allowed = DefaultTransitions()
	}
	return &TransitionGuard{next: next, requests: requests, allowed: allowed}
}

// DefaultTransitions matches the seeded statuses: 1 Aberto, 2 Em Análise,
// 3 Em Andamento, 4 Aguardando Cliente, 5 Aguardando Terceiros, 6 Resolvido,
// 7 Fechado, 8 Cancelado.
func DefaultTransitions() map[int64][]int64 {
	return map[int64][]int64{
		1: {2, 3, 4, 5, 6, 8},
		2: {3, 4, 5, 6, 8},
		3: {2, 4, 5, 6, 8},
		4: {2, 3, 6, 8},
		5: {2, 3, 6, 8},
		6: {3, 7},
		7: {},
		8: {},
	}
}

func (g *TransitionGuard) TransitionStatus(ctx context.Context, in TransitionInput) (*domain.Request, error) {
	req, err := g.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, apperrors.MapError("request", err)
	}
	if !g.Allowed(req.StatusID, in.StatusID) {
		return nil, apperrors.NewValidationError("transição de status não permitida", map[string]any{
			"de":   req.StatusID,
			"para": in.StatusID,
		})
	}
	return g.next.TransitionStatus(ctx, in)
}

// Allowed reports whether from -> to passes the table.
func (g *TransitionGuard) Allowed(from, to int64) bool {
	if from == to {
		return true
	}
	targets, restricted := g.allowed[from]
	if !restricted {
		return true
	}
	return slices.Contains(targets, to)
}
