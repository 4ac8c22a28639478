package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/stretchr/testify/require"
)

func seedGroup(t *testing.T, env *testEnv, owner uuid.UUID) string {
	t.Helper()

	g, err := env.groups.CreateGroup(context.Background(), models.Group{EventID: "ev1", Name: "Chat", OwnerID: owner})
	require.NoError(t, err)

	return g.ID
}

func TestJoinFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner, guest := uuid.New(), uuid.New()
	gid := seedGroup(t, env, owner)

	require.NoError(t, env.svc.RequestJoin(userCtx(guest), gid))
	require.NoError(t, env.svc.RequestJoin(userCtx(guest), gid), "repeat request is a no-op")
	require.Len(t, env.groups.byID[gid].Pending, 1)

	// Участник не попадает в заявки.
	require.NoError(t, env.svc.RequestJoin(userCtx(owner), gid))
	require.Len(t, env.groups.byID[gid].Pending, 1)

	// Заявка ещё не принята: сообщения недоступны.
	_, err := env.svc.SendMessage(userCtx(guest), gid, "hi")
	require.ErrorIs(t, err, ErrPermissionDenied)

	// Принять может только владелец.
	require.ErrorIs(t, env.svc.AcceptJoin(userCtx(guest), gid, guest), ErrPermissionDenied)
	require.NoError(t, env.svc.AcceptJoin(userCtx(owner), gid, guest))
	require.ErrorIs(t, env.svc.AcceptJoin(userCtx(owner), gid, guest), ErrNotFound, "no longer pending")

	g, err := env.svc.GroupByID(userCtx(guest), gid)
	require.NoError(t, err)
	require.True(t, g.IsMember(guest))
	require.Nil(t, g.Pending)

	mine, err := env.svc.MyGroups(userCtx(guest))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, 2, mine[0].MemberCount)
	require.False(t, mine[0].IsOwner)
}

func TestRequestJoin_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	require.ErrorIs(t, env.svc.RequestJoin(context.Background(), "g1"), ErrNotAuthenticated)
	require.ErrorIs(t, env.svc.RequestJoin(userCtx(uuid.New()), "missing"), ErrNotFound)
}

func TestAcceptJoin_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner := uuid.New()
	gid := seedGroup(t, env, owner)

	require.ErrorIs(t, env.svc.AcceptJoin(userCtx(owner), gid, uuid.Nil), ErrInvalidArgument)
	require.ErrorIs(t, env.svc.AcceptJoin(userCtx(owner), "missing", uuid.New()), ErrNotFound)
	require.ErrorIs(t, env.svc.AcceptJoin(userCtx(owner), gid, uuid.New()), ErrNotFound)
}

func TestGroupByID_OwnerSeesPending(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner, guest := uuid.New(), uuid.New()
	gid := seedGroup(t, env, owner)

	require.NoError(t, env.svc.RequestJoin(userCtx(guest), gid))

	g, err := env.svc.GroupByID(userCtx(owner), gid)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{guest}, g.Pending)

	_, err = env.svc.GroupByID(userCtx(guest), gid)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner := uuid.New()
	gid := seedGroup(t, env, owner)
	ctx := userCtx(owner)

	msg, err := env.svc.SendMessage(ctx, gid, "  hello  ")
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Text)
	require.Equal(t, owner, msg.AuthorID)
	require.Equal(t, "hello", env.groups.byID[gid].LastMessage)

	_, err = env.svc.SendMessage(ctx, gid, "   ")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = env.svc.SendMessage(ctx, gid, strings.Repeat("ж", 2001))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = env.svc.SendMessage(ctx, gid, strings.Repeat("ж", 2000))
	require.NoError(t, err)

	// Ошибка обновления превью не ломает отправку.
	env.groups.lastErr = errors.New("boom")
	_, err = env.svc.SendMessage(ctx, gid, "still works")
	require.NoError(t, err)

	page, err := env.svc.ListMessages(ctx, gid, models.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Equal(t, "hello", page.Items[0].Text)
}

func TestListMessages_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner := uuid.New()
	gid := seedGroup(t, env, owner)

	_, err := env.svc.ListMessages(userCtx(uuid.New()), gid, models.ListParams{})
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.svc.ListMessages(userCtx(owner), gid, models.ListParams{PageToken: "bad"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = env.svc.ListMessages(context.Background(), gid, models.ListParams{})
	require.ErrorIs(t, err, ErrNotAuthenticated)
}
