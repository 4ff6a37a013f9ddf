// Package admission gates concurrent execution of expensive job categories
// with fixed-capacity permit pools. Every job also draws from a shared heavy
// pool so the combined load stays bounded.
package admission

import (
	"context"
	"errors"
)

// Category names an admission pool
type Category string

const (
	// TTS gates speech synthesis and transcription jobs
	TTS Category = "tts"
	// Video gates video assembly jobs
	Video Category = "video"
)

// acquireOrder fixes the order pools are taken in so two jobs requesting the
// same set can never deadlock against each other
var acquireOrder = []Category{TTS, Video}

// ErrDenied is returned when a pool has no spare capacity. Handlers map it to
// HTTP 429.
var ErrDenied = errors.New("server is busy processing other requests, try again later")

// Controller holds the permit pools. Construct one per process and pass it to
// every request handler; there is no ambient global.
type Controller struct {
	pools map[Category]chan struct{}
	heavy chan struct{}
}

// New creates a controller with the given pool capacities
func New(ttsCapacity, videoCapacity, heavyCapacity int) *Controller {
	return &Controller{
		pools: map[Category]chan struct{}{
			TTS:   make(chan struct{}, ttsCapacity),
			Video: make(chan struct{}, videoCapacity),
		},
		heavy: make(chan struct{}, heavyCapacity),
	}
}

// Admit is a non-blocking advisory peek: true only if every named pool and
// the heavy pool currently has spare capacity. It does not reserve anything;
// a burst of requests can all pass the peek and later block inside Run. That
// race is accepted: the peek exists to reject obviously-doomed requests
// before any ids or markers are allocated.
func (c *Controller) Admit(categories ...Category) bool {
	for _, category := range categories {
		pool, ok := c.pools[category]
		if !ok {
			return false
		}
		if len(pool) >= cap(pool) {
			return false
		}
	}
	return len(c.heavy) < cap(c.heavy)
}

// Run blocks until a permit is obtained from every requested pool plus the
// heavy pool, invokes fn, and releases the permits in reverse order on every
// exit path.
func (c *Controller) Run(ctx context.Context, categories []Category, fn func() error) error {
	var held []chan struct{}
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, category := range acquireOrder {
		if !contains(categories, category) {
			continue
		}
		pool := c.pools[category]
		select {
		case pool <- struct{}{}:
			held = append(held, pool)
		case <-ctx.Done():
			release()
			return ctx.Err()
		}
	}

	select {
	case c.heavy <- struct{}{}:
		held = append(held, c.heavy)
	case <-ctx.Done():
		release()
		return ctx.Err()
	}

	defer release()
	return fn()
}

func contains(categories []Category, want Category) bool {
	for _, c := range categories {
		if c == want {
			return true
		}
	}
	return false
}
