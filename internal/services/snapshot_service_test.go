package services

import (
	"context"
	"testing"
	"time"

	"schoolprops/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_WindowsRequestsByCreation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	item := e.item(t, "Printer", 2, 0)
	early := e.requestItem(t, e.alice, item.ID, 1)
	e.clock.Advance(48 * time.Hour)
	late := e.requestItem(t, e.bob, item.ID, 1)

	svc := NewSnapshotService(e.store, e.clock.Now)
	from := e.clock.Now().Add(-time.Hour)
	snap, err := svc.Snapshot(ctx, e.admin, from, e.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, late.ID, snap.Requests[0].ID)
	assert.NotEqual(t, early.ID, snap.Requests[0].ID)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, e.clock.Now(), snap.GeneratedAt)
	require.NotNil(t, snap.Budget)

	_, err = svc.Snapshot(ctx, e.alice, from, e.clock.Now())
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.Snapshot(ctx, e.admin, e.clock.Now(), from)
	assert.True(t, common.IsValidationError(err))
}
