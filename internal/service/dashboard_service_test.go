package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardSnapshot(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()
	svc := NewDashboardService(DashboardDependencies{
		DashboardRepo: &fakeDashboardRepo{s: f.store},
		Config:        testLifecycleConfig(),
		Clock:         func() time.Time { return *f.now },
	})

	fast := validCreateInput()
	fast.PriorityID = 3
	_, err := f.svc.Create(ctx, fast)
	require.NoError(t, err)
	slow, err := f.svc.Create(ctx, validCreateInput())
	require.NoError(t, err)
	done, err := f.svc.Create(ctx, fast)
	require.NoError(t, err)
	_, err = f.svc.TransitionStatus(ctx, TransitionInput{RequestID: done.ID, StatusID: 6, ActorID: 20})
	require.NoError(t, err)

	f.advance(25 * time.Hour)
	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), snap.Total)
	var sum int64
	for _, g := range snap.ByStatus {
		sum += g.Count
	}
	assert.Equal(t, snap.Total, sum)
	assert.Equal(t, int64(1), snap.Overdue)
	assert.Equal(t, int64(1), snap.Urgent)
	assert.Equal(t, *f.now, snap.GeneratedAt)
	assert.Equal(t, baseTime.Add(48*time.Hour), *slow.ResolutionDeadline)

	stats, err := svc.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ActiveUsers)
}
