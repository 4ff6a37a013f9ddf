package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitReflectsCapacity(t *testing.T) {
	c := New(1, 1, 2)

	assert.True(t, c.Admit(TTS))
	assert.True(t, c.Admit(Video))
	assert.True(t, c.Admit(TTS, Video))
	assert.False(t, c.Admit(Category("unknown")))
}

func TestAdmitDeniesWhenPoolFull(t *testing.T) {
	c := New(1, 1, 2)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.Run(context.Background(), []Category{TTS}, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.False(t, c.Admit(TTS), "tts pool is at capacity")
	assert.True(t, c.Admit(Video), "video pool is unaffected")

	close(release)
}

func TestAdmitDeniesWhenHeavyPoolFull(t *testing.T) {
	c := New(2, 2, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.Run(context.Background(), []Category{TTS}, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// tts still has a slot but the shared heavy pool is exhausted
	assert.False(t, c.Admit(TTS))
	assert.False(t, c.Admit(Video))

	close(release)
}

func TestRunLimitsConcurrency(t *testing.T) {
	c := New(2, 1, 3)

	var mu sync.Mutex
	running, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Run(context.Background(), []Category{TTS}, func() error {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 2, "tts pool capacity bounds concurrency")
}

func TestRunReleasesOnError(t *testing.T) {
	c := New(1, 1, 1)

	wantErr := errors.New("job failed")
	err := c.Run(context.Background(), []Category{TTS, Video}, func() error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// all permits returned
	assert.True(t, c.Admit(TTS, Video))
}

func TestRunHonorsContextWhileWaiting(t *testing.T) {
	c := New(1, 1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.Run(context.Background(), []Category{TTS}, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Run(ctx, []Category{TTS}, func() error {
		t.Fatal("work must not run after context expiry")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)

	// the waiter released nothing it did not hold; pool recovers fully
	assert.Eventually(t, func() bool { return c.Admit(TTS) }, time.Second, 5*time.Millisecond)
}
