// Package search throttles free-text query input into bounded-rate
// search requests.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"social-feed-app/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultDelay is how long input must be quiet before a request fires.
const DefaultDelay = 300 * time.Millisecond

type state int

const (
	stateIdle state = iota
	statePending
	stateFetching
)

// Fetcher performs one search request.
type Fetcher func(ctx context.Context, query string) ([]models.User, error)

// Debouncer is a state machine over {Idle, Pending, Fetching}. Every
// keystroke restarts the single owned timer; only a settled query issues a
// request, and a response for a superseded query is discarded.
type Debouncer struct {
	ctx     context.Context
	delay   time.Duration
	fetch   Fetcher
	onError func(error)

	mu      sync.Mutex
	timer   *time.Timer
	state   state
	gen     uint64
	query   string
	results []models.User
}

// NewDebouncer creates a debouncer. onError receives fetch failures and
// may be nil. A non-positive delay falls back to DefaultDelay.
func NewDebouncer(ctx context.Context, delay time.Duration, fetch Fetcher, onError func(error)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{ctx: ctx, delay: delay, fetch: fetch, onError: onError}
}

// Input feeds one keystroke's worth of query text. Empty or whitespace-only
// input clears results immediately and issues no request.
func (d *Debouncer) Input(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if strings.TrimSpace(text) == "" {
		d.state = stateIdle
		d.query = ""
		d.results = nil
		return
	}

	d.state = statePending
	d.query = text
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs when the delay elapses without further input.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.state = stateFetching
	query := d.query
	d.mu.Unlock()

	users, err := d.fetch(d.ctx, query)

	d.mu.Lock()
	if gen != d.gen {
		// Superseded while in flight; drop the response.
		d.mu.Unlock()
		return
	}
	d.state = stateIdle
	if err != nil {
		d.mu.Unlock()
		log.Debug().Err(err).Str("query", query).Msg("Search failed")
		if d.onError != nil {
			d.onError(err)
		}
		return
	}
	d.results = users
	d.mu.Unlock()
}

// Results returns a copy of the results for the last settled query.
func (d *Debouncer) Results() []models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.User(nil), d.results...)
}

// Cancel discards any pending timer and in-flight response.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.state = stateIdle
}
