package minio

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/bondia/internal/config"
	"github.com/pribylovaa/bondia/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты поднимают реальный MinIO через testcontainers-go.
//
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/minio -v -race -count=1

func startMinio(t *testing.T, createBucket bool) (config.S3Config, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	const (
		image        = "docker.io/minio/minio:latest"
		rootUser     = "root"
		rootPassword = "rootpass"
		bucket       = "images"
	)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image: image,
			Env: map[string]string{
				"MINIO_ROOT_USER":     rootUser,
				"MINIO_ROOT_PASSWORD": rootPassword,
			},
			Cmd:          []string{"server", "/data"},
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "9000/tcp")

	if createBucket {
		admin, err := mclient.New(host+":"+port.Port(), &mclient.Options{
			Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
		})
		require.NoError(t, err)
		require.NoError(t, admin.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{Region: "us-east-1"}))
	}

	cfg := config.S3Config{
		Endpoint:     fmt.Sprintf("http://%s:%s", host, port.Port()),
		RootUser:     rootUser,
		RootPassword: rootPassword,
		Bucket:       bucket,
	}

	return cfg, func() { _ = c.Terminate(context.Background()) }
}

func TestPublicBase(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://cdn.local",
		publicBase(config.S3Config{PublicBaseURL: "http://cdn.local/"}, false, "minio:9000"))
	require.Equal(t, "https://minio:9000/images",
		publicBase(config.S3Config{Bucket: "images"}, true, "minio:9000"))
}

func TestKeyFromURL(t *testing.T) {
	t.Parallel()

	s := &ImagesStorage{baseURL: "http://cdn.local"}

	key, ok := s.KeyFromURL("http://cdn.local/gallery_images/u/1.png?X-Amz=1")
	require.True(t, ok)
	require.Equal(t, "gallery_images/u/1.png", key)

	_, ok = s.KeyFromURL("http://evil.local/gallery_images/u/1.png")
	require.False(t, ok)

	_, ok = s.KeyFromURL("http://cdn.local/")
	require.False(t, ok)

	_, ok = s.KeyFromURL("http://evil.local/?q=http://cdn.local/gallery_images/u/1.png")
	require.False(t, ok)

	_, ok = s.KeyFromURL("http://cdn.local.evil/gallery_images/u/1.png")
	require.False(t, ok)
}

func TestIntegration_New_BucketMustExist(t *testing.T) {
	cfg, cleanup := startMinio(t, false)
	defer cleanup()

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestIntegration_UploadDownload_RoundTrip(t *testing.T) {
	cfg, cleanup := startMinio(t, true)
	defer cleanup()

	ctx := context.Background()
	st, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, st.Ping(ctx))

	key := "gallery_images/" + uuid.NewString() + "/1.png"
	url, err := st.Upload(ctx, storage.Object{Key: key, ContentType: "image/png", Data: []byte("\x89PNG data")})
	require.NoError(t, err)
	require.Equal(t, cfg.Endpoint+"/images/"+key, url)

	obj, err := st.Download(ctx, url)
	require.NoError(t, err)
	require.Equal(t, key, obj.Key)
	require.Equal(t, "image/png", obj.ContentType)
	require.Equal(t, []byte("\x89PNG data"), obj.Data)

	_, err = st.Download(ctx, cfg.Endpoint+"/images/missing/key.png")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.Upload(ctx, storage.Object{Key: "", Data: []byte("x")})
	require.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = st.Upload(ctx, storage.Object{Key: "k", Data: nil})
	require.ErrorIs(t, err, storage.ErrInvalidArgument)
}
