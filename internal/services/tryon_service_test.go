package services_test

import (
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"closet/internal/apperrors"
	"closet/internal/models"
	"closet/internal/pathutil"
	"closet/internal/services"
	"closet/internal/tryon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner stands in for the external program.
type fakeRunner func(ctx context.Context) error

func (f fakeRunner) Run(ctx context.Context) error { return f(ctx) }

// producing reads the manifest and writes the result the real program would.
func producing(layout tryon.Layout) fakeRunner {
	return func(ctx context.Context) error {
		line, err := os.ReadFile(layout.ManifestPath())
		if err != nil {
			return err
		}
		names := strings.Fields(string(line))
		out := pathutil.Stem(names[0]) + "_" + pathutil.Stem(names[1]) + ".png"
		return os.WriteFile(filepath.Join(layout.OutputDir(), out), onePixelPNG, 0o644)
	}
}

func newTryOnService(t *testing.T, runner func(tryon.Layout) tryon.Runner, timeout time.Duration) (*services.TryOnService, *memoryJobRepository, tryon.Layout) {
	t.Helper()
	layout := tryon.Layout{Root: t.TempDir()}
	require.NoError(t, layout.Ensure())
	queue := tryon.NewQueue(1, 4, timeout)
	t.Cleanup(queue.Close)
	jobs := newMemoryJobRepository()
	return services.NewTryOnService(layout, runner(layout), queue, jobs, []string{"png"}, nil), jobs, layout
}

func TestTryOnService_VirtualTryOn(t *testing.T) {
	svc, jobs, layout := newTryOnService(t, func(l tryon.Layout) tryon.Runner { return producing(l) }, time.Minute)

	job, err := svc.VirtualTryOn(context.Background(), 1, fileHeader(t, "me.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	require.NoError(t, err)
	assert.Equal(t, models.TryOnStatusSucceeded, job.Status)
	assert.Equal(t, "/results/"+pathutil.Stem(job.UserImage)+"_"+pathutil.Stem(job.ClothingImage)+".png", job.ResultURL)
	assert.NotContains(t, job.UserImage, "me", "staged names never reuse client names")

	manifest, err := os.ReadFile(layout.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, job.UserImage+" "+job.ClothingImage+"\n", string(manifest))
	assert.FileExists(t, filepath.Join(layout.ImageDir(), job.UserImage))
	assert.FileExists(t, filepath.Join(layout.ClothDir(), job.ClothingImage))

	stored, err := jobs.GetForUser(job.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TryOnStatusSucceeded, stored.Status)
	assert.NotNil(t, stored.FinishedAt)

	path, err := svc.ResultPath(strings.TrimPrefix(job.ResultURL, services.ResultURLPrefix))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestTryOnService_VirtualTryOnValidation(t *testing.T) {
	svc, _, layout := newTryOnService(t, func(l tryon.Layout) tryon.Runner { return producing(l) }, time.Minute)
	ctx := context.Background()
	png := fileHeader(t, "me.png", onePixelPNG)
	unnamed := fileHeader(t, "x.png", onePixelPNG)
	unnamed.Filename = ""

	for name, pair := range map[string][2]*multipart.FileHeader{
		"missing user image":  {nil, png},
		"missing cloth image": {png, nil},
		"empty filename":      {png, unnamed},
		"extension":           {png, fileHeader(t, "shirt.gif", onePixelPNG)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VirtualTryOn(ctx, 1, pair[0], pair[1])
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
		})
	}

	entries, err := os.ReadDir(layout.ImageDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is staged for rejected requests")
}

func TestTryOnService_VirtualTryOnProgramFails(t *testing.T) {
	failing := func(tryon.Layout) tryon.Runner {
		return fakeRunner(func(context.Context) error {
			return apperrors.ExternalProcess("try-on program failed", "CUDA out of memory", nil)
		})
	}
	svc, jobs, _ := newTryOnService(t, failing, time.Minute)

	_, err := svc.VirtualTryOn(context.Background(), 1, fileHeader(t, "me.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	assert.True(t, apperrors.Is(err, apperrors.KindExternalProcess))

	for _, job := range jobs.jobs {
		assert.Equal(t, models.TryOnStatusFailed, job.Status)
		assert.Contains(t, job.Error, "CUDA out of memory")
	}
}

func TestTryOnService_VirtualTryOnMissingResult(t *testing.T) {
	silent := func(tryon.Layout) tryon.Runner {
		return fakeRunner(func(context.Context) error { return nil })
	}
	svc, _, _ := newTryOnService(t, silent, time.Minute)

	_, err := svc.VirtualTryOn(context.Background(), 1, fileHeader(t, "me.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestTryOnService_VirtualTryOnTimeout(t *testing.T) {
	blocking := func(tryon.Layout) tryon.Runner {
		return fakeRunner(func(ctx context.Context) error {
			<-ctx.Done()
			return apperrors.ExternalProcess("try-on program timed out", "", ctx.Err())
		})
	}
	svc, _, _ := newTryOnService(t, blocking, 50*time.Millisecond)

	_, err := svc.VirtualTryOn(context.Background(), 1, fileHeader(t, "me.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	assert.True(t, apperrors.Is(err, apperrors.KindExternalProcess))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTryOnService_VirtualTryOnCancelledByCaller(t *testing.T) {
	started := make(chan struct{})
	blocking := func(tryon.Layout) tryon.Runner {
		return fakeRunner(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return apperrors.ExternalProcess("try-on program was cancelled", "", ctx.Err())
		})
	}
	svc, jobs, _ := newTryOnService(t, blocking, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := svc.VirtualTryOn(ctx, 1, fileHeader(t, "me.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	assert.True(t, apperrors.Is(err, apperrors.KindExternalProcess))
	assert.ErrorIs(t, err, context.Canceled)

	for _, job := range jobs.jobs {
		assert.Equal(t, models.TryOnStatusFailed, job.Status)
	}
}

func TestTryOnService_VirtualTryOnCancelledWhileQueued(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	gated := func(l tryon.Layout) tryon.Runner {
		return fakeRunner(func(ctx context.Context) error {
			started <- struct{}{}
			<-release
			return producing(l)(ctx)
		})
	}
	svc, jobs, _ := newTryOnService(t, gated, time.Minute)
	defer close(release)

	running, err := svc.EnqueueTryOn(context.Background(), 1, fileHeader(t, "first.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	begin := time.Now()
	_, err = svc.VirtualTryOn(ctx, 1, fileHeader(t, "me.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	assert.Less(t, time.Since(begin), time.Second, "caller returns without waiting for the running job")
	assert.True(t, apperrors.Is(err, apperrors.KindExternalProcess))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	for id, job := range jobs.jobs {
		if id == running.ID {
			assert.Equal(t, models.TryOnStatusRunning, job.Status)
			continue
		}
		assert.Equal(t, models.TryOnStatusFailed, job.Status)
	}
}

func TestTryOnService_EnqueueAndGetJob(t *testing.T) {
	svc, _, _ := newTryOnService(t, func(l tryon.Layout) tryon.Runner { return producing(l) }, time.Minute)

	job, err := svc.EnqueueTryOn(context.Background(), 1, fileHeader(t, "me.png", onePixelPNG), fileHeader(t, "shirt.png", onePixelPNG))
	require.NoError(t, err)
	assert.Equal(t, models.TryOnStatusQueued, job.Status)

	require.Eventually(t, func() bool {
		got, err := svc.GetJob(1, job.ID)
		return err == nil && got.Status == models.TryOnStatusSucceeded
	}, 5*time.Second, 10*time.Millisecond)

	_, err = svc.GetJob(2, job.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound), "jobs are private to their owner")
}

func TestTryOnService_ResultPathStaysInOutput(t *testing.T) {
	svc, _, layout := newTryOnService(t, func(l tryon.Layout) tryon.Runner { return producing(l) }, time.Minute)
	require.NoError(t, os.WriteFile(filepath.Join(layout.Root, "secret.png"), onePixelPNG, 0o644))

	for _, name := range []string{"missing.png", "../secret.png", ""} {
		_, err := svc.ResultPath(name)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound), name)
	}
}
