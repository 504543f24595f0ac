package credits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewServiceFromDB(testutil.NewDB(t))
}

func TestGrantSignupOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	balance, err := svc.GrantSignup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	balance, err = svc.GrantSignup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	history, err := svc.History(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.CreditReasonSignup, history[0].Reason)
	assert.Equal(t, "signup:7", history[0].Reference)
}

func TestGrantCycleOncePerReference(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ref := CycleReference("sub-1", 1700000000)
	balance, err := svc.GrantCycle(ctx, 3, ref)
	require.NoError(t, err)
	assert.Equal(t, 200, balance)

	balance, err = svc.GrantCycle(ctx, 3, ref)
	require.NoError(t, err)
	assert.Equal(t, 200, balance)

	balance, err = svc.GrantCycle(ctx, 3, CycleReference("sub-1", 1702592000))
	require.NoError(t, err)
	assert.Equal(t, 400, balance)
}

func TestConsume(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Consume(ctx, 9, 1, "coloring:a")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	_, err = svc.GrantSignup(ctx, 9)
	require.NoError(t, err)

	balance, err := svc.Consume(ctx, 9, 1, "coloring:a")
	require.NoError(t, err)
	assert.Equal(t, 4, balance)

	_, err = svc.Consume(ctx, 9, 1, "coloring:a")
	assert.ErrorIs(t, err, ErrDuplicateReference)

	_, err = svc.Consume(ctx, 9, 10, "coloring:b")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	balance, err = svc.Balance(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, balance)

	_, err = svc.Consume(ctx, 9, 0, "coloring:c")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRefundOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GrantSignup(ctx, 4)
	require.NoError(t, err)
	_, err = svc.Consume(ctx, 4, 1, "coloring:x")
	require.NoError(t, err)

	balance, err := svc.Refund(ctx, 4, 1, "coloring:x")
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	balance, err = svc.Refund(ctx, 4, 1, "coloring:x")
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestBalanceOfUnknownUser(t *testing.T) {
	svc := newTestService(t)
	balance, err := svc.Balance(context.Background(), 404)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GrantSignup(ctx, 2)
	require.NoError(t, err)
	_, err = svc.Consume(ctx, 2, 2, "coloring:1")
	require.NoError(t, err)

	history, err := svc.History(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, -2, history[0].Amount)
	assert.Equal(t, 3, history[0].BalanceAfter)
	assert.Equal(t, 5, history[1].Amount)
}
