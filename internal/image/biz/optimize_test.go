package biz

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shrinkray/image-optimizer-backend/internal/image/transform"
	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/workerpool"
)

type fakeRepo struct {
	mu        sync.Mutex
	images    map[string]*Image
	debits    []string
	createErr error
	debitErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{images: map[string]*Image{}}
}

func (r *fakeRepo) Create(_ context.Context, img *Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.images[img.ID] = img
	return nil
}

func (r *fakeRepo) CreateWithCreditDebit(_ context.Context, img *Image, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.debitErr != nil {
		return r.debitErr
	}
	r.images[img.ID] = img
	r.debits = append(r.debits, userID)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrImageNotFound)
	}
	return img, nil
}

func (r *fakeRepo) List(_ context.Context, _ string, _, _ int) ([]*Image, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Image, 0, len(r.images))
	for _, img := range r.images {
		out = append(out, img)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]*Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Image
	for _, img := range r.images {
		if img.ExpiresAt != nil && img.ExpiresAt.Before(cutoff) && len(out) < limit {
			out = append(out, img)
		}
	}
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, id)
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failKey string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKey != "" && strings.HasPrefix(key, s.failKey) {
		return errors.New("upload rejected")
	}
	if _, exists := s.objects[key]; exists {
		return errors.New("object already exists")
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) PublicURL(key string) string {
	return "http://storage.local/images/" + key
}

type shrinkTransformer struct {
	err error
}

func (t *shrinkTransformer) Transform(data []byte, _ string) (*transform.Result, error) {
	if t.err != nil {
		return nil, t.err
	}
	return &transform.Result{Data: data[:len(data)/2], ContentType: "image/jpeg"}, nil
}

func newTestUseCase(t *testing.T, repo *fakeRepo, storage *fakeStorage, tr transform.Transformer, cfg Config) *OptimizeUseCase {
	t.Helper()
	pool, err := workerpool.New(&workerpool.Config{Workers: 2}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return NewOptimizeUseCase(repo, storage, tr, pool, cfg, logger.Nop())
}

func TestOptimizeAnonymous(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	uc := newTestUseCase(t, repo, storage, &shrinkTransformer{}, Config{})

	out, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "photo.png",
		ContentType: "image/png",
		Data:        bytes.Repeat([]byte{0xAB}, 1000),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), out.Image.OriginalSize)
	assert.Equal(t, int64(500), out.Image.OptimizedSize)
	assert.Equal(t, 50.0, out.CompressionRatio)
	assert.Nil(t, out.Image.UserID)
	assert.Nil(t, out.Image.CreditsUsed)

	assert.True(t, strings.HasPrefix(out.Image.OriginalPath, "original/"))
	assert.True(t, strings.HasPrefix(out.Image.OptimizedPath, "optimized/"))
	assert.True(t, strings.HasSuffix(out.Image.OriginalPath, ".png"))
	assert.True(t, strings.HasSuffix(out.Image.OptimizedPath, ".png"))
	assert.NotEqual(t,
		strings.TrimPrefix(out.Image.OriginalPath, "original/"),
		strings.TrimPrefix(out.Image.OptimizedPath, "optimized/"))

	assert.Len(t, storage.objects, 2)
	assert.Len(t, repo.images, 1)
	assert.Empty(t, repo.debits)
	assert.Equal(t, "http://storage.local/images/"+out.Image.OriginalPath, out.OriginalURL)
}

func TestOptimizeSameFileTwiceStoresDistinctObjects(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	uc := newTestUseCase(t, repo, storage, &shrinkTransformer{}, Config{})

	in := &OptimizeInput{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        bytes.Repeat([]byte{0x42}, 200),
	}

	first, err := uc.Optimize(context.Background(), in)
	require.NoError(t, err)
	second, err := uc.Optimize(context.Background(), in)
	require.NoError(t, err)

	// identical input never dedups: new row, new keys each time
	assert.NotEqual(t, first.Image.ID, second.Image.ID)
	assert.NotEqual(t, first.Image.OriginalPath, second.Image.OriginalPath)
	assert.NotEqual(t, first.Image.OptimizedPath, second.Image.OptimizedPath)
	assert.Len(t, repo.images, 2)
	// the fake store rejects duplicate keys, so four stored objects
	// means all four keys are distinct
	assert.Len(t, storage.objects, 4)
}

func TestOptimizeDebitsAuthenticatedUser(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	uc := newTestUseCase(t, repo, storage, &shrinkTransformer{}, Config{})

	out, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        bytes.Repeat([]byte{1}, 100),
		UserID:      "user-7",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Image.UserID)
	assert.Equal(t, "user-7", *out.Image.UserID)
	require.NotNil(t, out.Image.CreditsUsed)
	assert.Equal(t, int64(1), *out.Image.CreditsUsed)
	assert.Equal(t, []string{"user-7"}, repo.debits)
}

func TestOptimizeInsufficientCredits(t *testing.T) {
	repo := newFakeRepo()
	repo.debitErr = apperrors.New(apperrors.ErrInsufficientCredits)
	storage := newFakeStorage()
	uc := newTestUseCase(t, repo, storage, &shrinkTransformer{}, Config{})

	_, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        bytes.Repeat([]byte{1}, 100),
		UserID:      "user-broke",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientCredits))
	assert.Empty(t, repo.images)
}

func TestOptimizeMissingFile(t *testing.T) {
	uc := newTestUseCase(t, newFakeRepo(), newFakeStorage(), &shrinkTransformer{}, Config{})

	_, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingFile))
}

func TestOptimizeRejectsOversizedUpload(t *testing.T) {
	uc := newTestUseCase(t, newFakeRepo(), newFakeStorage(), &shrinkTransformer{}, Config{MaxUploadBytes: 64})

	_, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "big.jpg",
		ContentType: "image/jpeg",
		Data:        bytes.Repeat([]byte{1}, 65),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileTooLarge))
}

func TestOptimizeRejectsUnsupportedType(t *testing.T) {
	uc := newTestUseCase(t, newFakeRepo(), newFakeStorage(), &shrinkTransformer{}, Config{})

	_, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "doc.pdf",
		ContentType: "application/pdf",
		Data:        []byte{1, 2, 3},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnsupportedMediaType))
}

func TestOptimizeTransformFailure(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	uc := newTestUseCase(t, repo, storage, &shrinkTransformer{err: errors.New("bad image data")}, Config{})

	_, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "broken.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{1, 2, 3, 4},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTransformFailed))
	assert.Empty(t, storage.objects)
	assert.Empty(t, repo.images)
}

func TestOptimizedUploadFailureKeepsOriginal(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	storage.failKey = "optimized/"
	uc := newTestUseCase(t, repo, storage, &shrinkTransformer{}, Config{})

	_, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        bytes.Repeat([]byte{1}, 100),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUploadFailed))

	// the original object survives for the sweeper to reclaim later
	require.Len(t, storage.objects, 1)
	for key := range storage.objects {
		assert.True(t, strings.HasPrefix(key, "original/"))
	}
	assert.Empty(t, repo.images)
}

func TestOptimizeSetsExpiry(t *testing.T) {
	repo := newFakeRepo()
	uc := newTestUseCase(t, repo, newFakeStorage(), &shrinkTransformer{}, Config{Retention: time.Hour})

	out, err := uc.Optimize(context.Background(), &OptimizeInput{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        bytes.Repeat([]byte{1}, 100),
	})
	require.NoError(t, err)
	require.NotNil(t, out.Image.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), *out.Image.ExpiresAt, time.Minute)
}

func TestSweepExpired(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	uc := newTestUseCase(t, repo, storage, &shrinkTransformer{}, Config{})

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	expired := &Image{ID: "old", OriginalPath: "original/old.jpg", OptimizedPath: "optimized/old.jpg", ExpiresAt: &past}
	fresh := &Image{ID: "new", OriginalPath: "original/new.jpg", OptimizedPath: "optimized/new.jpg", ExpiresAt: &future}
	require.NoError(t, repo.Create(context.Background(), expired))
	require.NoError(t, repo.Create(context.Background(), fresh))
	storage.objects["original/old.jpg"] = []byte{1}
	storage.objects["optimized/old.jpg"] = []byte{2}
	storage.objects["original/new.jpg"] = []byte{3}
	storage.objects["optimized/new.jpg"] = []byte{4}

	deleted, err := uc.SweepExpired(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = repo.GetByID(context.Background(), "old")
	assert.Error(t, err)
	_, err = repo.GetByID(context.Background(), "new")
	assert.NoError(t, err)
	assert.NotContains(t, storage.objects, "original/old.jpg")
	assert.NotContains(t, storage.objects, "optimized/old.jpg")
	assert.Contains(t, storage.objects, "original/new.jpg")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain ascii kept", "photo.jpg", "photo.jpg"},
		{"accented letters stripped", "fotó.png", "fot.png"},
		{"cjk stripped", "写真.jpeg", ".jpeg"},
		{"spaces kept", "my photo.jpg", "my photo.jpg"},
		{"control bytes stripped", "a\x00b\nc.jpg", "abc.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "png", FileExtension("photo.png"))
	assert.Equal(t, "jpg", FileExtension("photo"))
	assert.Equal(t, "jpg", FileExtension(""))
	assert.Equal(t, "jpeg", FileExtension("a.b.JPEG"))
	assert.Equal(t, "jpg", FileExtension("a.b c"))
	assert.Equal(t, "jpg", FileExtension("photo.p~g"))
	assert.Equal(t, "mp4", FileExtension("clip.mp4"))
}

func TestCompressionRatio(t *testing.T) {
	assert.Equal(t, 50.0, CompressionRatio(1000, 500))
	assert.Equal(t, 33.33, CompressionRatio(3000, 2000))
	assert.Equal(t, 0.0, CompressionRatio(0, 100))
	assert.Equal(t, -10.0, CompressionRatio(100, 110))
}
