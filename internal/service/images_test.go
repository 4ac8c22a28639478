package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/stretchr/testify/require"
)

func collect(ch <-chan ImageResult) []ImageResult {
	var out []ImageResult
	for r := range ch {
		out = append(out, r)
	}

	return out
}

func TestProfileImages_StreamsAsEachSettles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	env.objects.put("pic", pngMagic, "image/png")
	env.objects.put("g0", jpegMagic, "image/jpeg")
	env.objects.put("g2", pngMagic, "image/png")
	env.objects.delays["pic"] = 80 * time.Millisecond

	p := &models.Profile{
		UserID:           uuid.New(),
		ProfileImageURL:  "pic",
		ImageGalleryURLs: []string{"g0", "missing", "g2"},
	}

	results := collect(env.svc.ProfileImages(context.Background(), p))
	require.Len(t, results, 4)

	// Медленная картинка профиля не задерживает галерею.
	require.Equal(t, "profile", results[len(results)-1].Kind)

	byURL := map[string]ImageResult{}
	for _, r := range results {
		byURL[r.URL] = r
	}

	require.NoError(t, byURL["pic"].Err)
	require.Equal(t, "image/png", byURL["pic"].Image.ContentType)

	require.NoError(t, byURL["g0"].Err)
	require.Equal(t, 0, byURL["g0"].Index)

	require.ErrorIs(t, byURL["missing"].Err, ErrNotFound)
	require.Equal(t, 1, byURL["missing"].Index)
	require.Nil(t, byURL["missing"].Image)

	require.NoError(t, byURL["g2"].Err)
	require.Equal(t, 2, byURL["g2"].Index)
}

func TestProfileImages_Empty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	require.Empty(t, collect(env.svc.ProfileImages(context.Background(), &models.Profile{})))
	require.Empty(t, collect(env.svc.ProfileImages(context.Background(), nil)))
}

func TestProfileImages_Canceled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.objects.put("slow", pngMagic, "image/png")
	env.objects.delays["slow"] = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	ch := env.svc.ProfileImages(ctx, &models.Profile{ProfileImageURL: "slow"})
	cancel()

	results := collect(ch)
	require.Len(t, results, 1)
	require.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestCheckImage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	ct, err := env.svc.checkImage(&models.Image{Data: jpegMagic, ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", ct, "detected type wins over declared")

	_, err = env.svc.checkImage(&models.Image{Data: []byte("GIF89a....")})
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.Equal(t, ".jpg", extFor("image/jpeg"))
	require.Equal(t, ".webp", extFor("image/webp"))
	require.Equal(t, "", extFor("application/octet-stream"))
}
