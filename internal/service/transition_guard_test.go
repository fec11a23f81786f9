package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

func TestTransitionGuardAllowed(t *testing.T) {
	guard := NewTransitionGuard(nil, nil, nil)

	tests := []struct {
		name     string
		from, to int64
		want     bool
	}{
		{name: "open to analysis", from: 1, to: 2, want: true},
		{name: "open to closed skips resolution", from: 1, to: 7, want: false},
		{name: "resolved to closed", from: 6, to: 7, want: true},
		{name: "resolved reopened", from: 6, to: 3, want: true},
		{name: "closed is terminal", from: 7, to: 3, want: false},
		{name: "cancelled is terminal", from: 8, to: 1, want: false},
		{name: "same status", from: 7, to: 7, want: true},
		{name: "unlisted source", from: 42, to: 1, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guard.Allowed(tt.from, tt.to))
		})
	}
}

func TestTransitionGuardWrapsLifecycle(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()
	guard := NewTransitionGuard(f.svc, f.requests, nil)

	req, err := f.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)

	_, err = guard.TransitionStatus(ctx, TransitionInput{RequestID: req.ID, StatusID: 7, ActorID: 20})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Len(t, f.store.historyFor(req.ID), 1)

	updated, err := guard.TransitionStatus(ctx, TransitionInput{RequestID: req.ID, StatusID: 6, ActorID: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(6), updated.StatusID)

	_, err = guard.TransitionStatus(ctx, TransitionInput{RequestID: 9999, StatusID: 2, ActorID: 20})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestTransitionGuardCustomTable(t *testing.T) {
	guard := NewTransitionGuard(nil, nil, map[int64][]int64{1: {2}})
	assert.True(t, guard.Allowed(1, 2))
	assert.False(t, guard.Allowed(1, 6))
	assert.True(t, guard.Allowed(6, 1))
}
