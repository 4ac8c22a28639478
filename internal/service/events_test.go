package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/storage"
	"github.com/stretchr/testify/require"
)

func validEventInput() PostEventInput {
	img := pngImage("ev")

	return PostEventInput{
		Title:         "Board games night",
		Location:      "Cafe",
		Description:   "Bring friends",
		StartsAt:      time.Now().Add(48 * time.Hour),
		Cost:          models.CostTier50,
		TermsAccepted: true,
		Image:         &img,
	}
}

func TestPostEvent_OK(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	uid := uuid.New()

	ev, err := env.svc.PostEvent(userCtx(uid), validEventInput())
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)
	require.Equal(t, uid, ev.OwnerID)
	require.True(t, strings.HasPrefix(ev.ImageURL, testBaseURL+"/event_images/"))
	require.Empty(t, ev.GroupID)
	require.Empty(t, env.groups.byID)
}

func TestPostEvent_WithGroupChat(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	uid := uuid.New()

	in := validEventInput()
	in.GroupChatEnabled = true

	ev, err := env.svc.PostEvent(userCtx(uid), in)
	require.NoError(t, err)
	require.NotEmpty(t, ev.GroupID)

	g := env.groups.byID[ev.GroupID]
	require.Equal(t, ev.ID, g.EventID)
	require.Equal(t, in.Title, g.Name)
	require.Equal(t, []uuid.UUID{uid}, g.Members)

	stored, err := env.svc.EventByID(context.Background(), ev.ID)
	require.NoError(t, err)
	require.Equal(t, ev.GroupID, stored.GroupID)
}

func TestPostEvent_GroupFailureKeepsEvent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.groups.createErr = errors.New("mongo down")

	in := validEventInput()
	in.GroupChatEnabled = true

	ev, err := env.svc.PostEvent(userCtx(uuid.New()), in)
	require.NoError(t, err)
	require.Empty(t, ev.GroupID)
	require.Len(t, env.events.byID, 1)
}

func TestPostEvent_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*PostEventInput)
	}{
		{name: "empty_title", mutate: func(in *PostEventInput) { in.Title = "  " }},
		{name: "empty_location", mutate: func(in *PostEventInput) { in.Location = "" }},
		{name: "empty_description", mutate: func(in *PostEventInput) { in.Description = "" }},
		{name: "terms", mutate: func(in *PostEventInput) { in.TermsAccepted = false }},
		{name: "cost", mutate: func(in *PostEventInput) { in.Cost = "free" }},
		{name: "starts_at", mutate: func(in *PostEventInput) { in.StartsAt = time.Time{} }},
		{name: "no_image", mutate: func(in *PostEventInput) { in.Image = nil }},
		{name: "bad_image", mutate: func(in *PostEventInput) { in.Image = &models.Image{Data: []byte("text")} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			in := validEventInput()
			tc.mutate(&in)

			_, err := env.svc.PostEvent(userCtx(uuid.New()), in)
			require.ErrorIs(t, err, ErrInvalidArgument)

			calls, _, _ := env.objects.stats()
			require.Zero(t, calls)
			require.Empty(t, env.events.byID)
		})
	}
}

func TestPostEvent_NotAuthenticated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.svc.PostEvent(context.Background(), validEventInput())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestPostEvent_ImageUploadFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	in := validEventInput()
	img := pngImage("ev-fail")
	in.Image = &img

	_, err := env.svc.PostEvent(userCtx(uuid.New()), in)
	require.ErrorIs(t, err, ErrImageUpload)
	require.Empty(t, env.events.byID)
}

func TestPostEvent_InsertFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.events.createErr = errors.New("insert failed")

	_, err := env.svc.PostEvent(userCtx(uuid.New()), validEventInput())
	require.ErrorIs(t, err, ErrDocumentWrite)

	calls, _, _ := env.objects.stats()
	require.Equal(t, 1, calls)
}

func TestListEvents(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.PostEvent(userCtx(uuid.New()), validEventInput())
	require.NoError(t, err)

	page, err := env.svc.ListEvents(context.Background(), ListEventsInput{Query: "  games "})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "games", env.events.lastQuery.Query)

	now := time.Now()
	_, err = env.svc.ListEvents(context.Background(), ListEventsInput{From: now, To: now.Add(-time.Hour)})
	require.ErrorIs(t, err, ErrInvalidArgument)

	env.events.listErr = storage.ErrInvalidCursor
	_, err = env.svc.ListEvents(context.Background(), ListEventsInput{ListParams: models.ListParams{PageToken: "x"}})
	require.ErrorIs(t, err, ErrInvalidArgument)

	env.events.listErr = errors.New("boom")
	_, err = env.svc.ListEvents(context.Background(), ListEventsInput{})
	require.ErrorIs(t, err, ErrInternal)
}

func TestEventByID_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.svc.EventByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.EventByID(context.Background(), "")
	require.ErrorIs(t, err, ErrNotFound)
}
