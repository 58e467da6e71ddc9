// Package widget assembles one gacha widget: an event loop, the bridge
// adapter over a backend, the catalog store, the pull state machine and a
// view. Methods on Widget are safe to call from any goroutine; they hand
// work to the loop and wait for the answer.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/lehigh-university-libraries/gacha/internal/bridge"
	"github.com/lehigh-university-libraries/gacha/internal/catalog"
	"github.com/lehigh-university-libraries/gacha/internal/eventloop"
	"github.com/lehigh-university-libraries/gacha/internal/gacha"
	"github.com/lehigh-university-libraries/gacha/internal/models"
	"github.com/lehigh-university-libraries/gacha/internal/present"
	"github.com/lehigh-university-libraries/gacha/internal/pull"
	"github.com/lehigh-university-libraries/gacha/internal/render"
)

// ErrClosed is returned once the widget event loop has stopped
var ErrClosed = errors.New("widget closed")

// Config holds the widget settings
type Config struct {
	Folder        string
	MinAnimation  time.Duration
	BridgeTimeout time.Duration
}

// Deps are the collaborators a widget is built from. Backend and View are
// required; Clock and RNG default to the real clock and a time seeded PCG.
type Deps struct {
	Backend bridge.Backend
	View    present.View
	Clock   clock.WithDelayedExecution
	RNG     gacha.RNG
}

// Status is what a widget reports about itself
type Status struct {
	Folder       string `json:"folder"`
	State        string `json:"state"`
	CatalogState string `json:"catalog_state"`
	Pulls        int    `json:"pulls"`
}

// Outcome is the end of one pull
type Outcome struct {
	Entry         models.CatalogEntry `json:"entry"`
	Promoted      bool                `json:"promoted"`
	FromGrade     string              `json:"from_grade,omitempty"`
	FakePromotion bool                `json:"fake_promotion"`
	Elapsed       time.Duration       `json:"elapsed"`
	Err           error               `json:"-"`
}

// Widget is a running gacha widget
type Widget struct {
	cfg     Config
	loop    *eventloop.Loop
	store   *catalog.Store
	machine *pull.Machine

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once

	settled chan struct{}
	loadErr error

	// touched only on the loop
	waiters []chan Outcome
	pulls   int
}

// New builds a widget. Nothing runs until Start.
func New(cfg Config, deps Deps) *Widget {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.RNG == nil {
		seed := uint64(time.Now().UnixNano())
		deps.RNG = rand.New(rand.NewPCG(seed, seed>>1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Widget{
		cfg:     cfg,
		loop:    eventloop.New(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}

	adapter := bridge.NewAdapter(ctx, deps.Backend, w.loop, cfg.BridgeTimeout)
	w.store = catalog.NewStore(adapter, cfg.Folder)
	w.machine = pull.New(pull.Config{
		Folder:       cfg.Folder,
		MinAnimation: cfg.MinAnimation,
	}, pull.Deps{
		Catalog:   w.store,
		Assets:    adapter,
		View:      deps.View,
		Renderer:  render.NewRenderer(),
		Clock:     deps.Clock,
		Scheduler: w.loop,
		RNG:       deps.RNG,
	})
	w.machine.Observe(w.onTransition)
	return w
}

// Start runs the event loop and begins loading the catalog. The widget
// stops when ctx is done or Close is called.
func (w *Widget) Start(ctx context.Context) {
	w.start.Do(func() {
		stop := context.AfterFunc(ctx, w.cancel)
		w.loop.Post(func() {
			w.store.Subscribe(w.onCatalog)
			w.machine.Start()
		})
		go func() {
			defer close(w.done)
			defer stop()
			_ = w.loop.Run(w.ctx)
			slog.Debug("Widget stopped", "folder", w.cfg.Folder)
		}()
	})
}

// Close stops the event loop and waits for it to exit
func (w *Widget) Close() {
	w.cancel()
	w.start.Do(func() { close(w.done) })
	<-w.done
}

func (w *Widget) onCatalog(state catalog.State, err error) {
	if state == catalog.StateFailed {
		w.loadErr = err
	}
	close(w.settled)
}

// WaitReady blocks until the catalog load has settled and returns the load
// error, if any
func (w *Widget) WaitReady(ctx context.Context) error {
	select {
	case <-w.settled:
		return w.loadErr
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pull starts a draw without waiting for it to finish
func (w *Widget) Pull(ctx context.Context) error {
	_, err := call(ctx, w, func() (struct{}, error) {
		return struct{}{}, w.machine.Pull()
	})
	return err
}

// PullAndWait starts a draw and waits until it reveals or fails
func (w *Widget) PullAndWait(ctx context.Context) (Outcome, error) {
	ch := make(chan Outcome, 1)
	_, err := call(ctx, w, func() (struct{}, error) {
		if err := w.machine.Pull(); err != nil {
			return struct{}{}, err
		}
		w.waiters = append(w.waiters, ch)
		return struct{}{}, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	select {
	case out := <-ch:
		return out, out.Err
	case <-w.done:
		return Outcome{}, ErrClosed
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Status reports the machine and catalog state
func (w *Widget) Status(ctx context.Context) (Status, error) {
	return call(ctx, w, func() (Status, error) {
		return Status{
			Folder:       w.cfg.Folder,
			State:        w.machine.State().String(),
			CatalogState: w.store.State().String(),
			Pulls:        w.pulls,
		}, nil
	})
}

// Catalog returns the loaded catalog
func (w *Widget) Catalog(ctx context.Context) (models.Catalog, error) {
	return call(ctx, w, w.store.Get)
}

func (w *Widget) onTransition(t pull.Transition) {
	var out Outcome
	switch t.To {
	case pull.StateRevealing:
		w.pulls++
	case pull.StateFailed:
		out.Err = t.Err
	default:
		return
	}
	if len(w.waiters) == 0 {
		return
	}

	out.Entry = t.Session.Selected
	out.Promoted = t.Session.Promoted
	out.FromGrade = t.Session.FromGrade
	out.FakePromotion = t.Session.FakePromotion
	out.Elapsed = t.At.Sub(t.Session.StartedAt)
	for _, ch := range w.waiters {
		ch <- out
	}
	w.waiters = nil
}

// call runs fn on the loop and waits for its result
func call[T any](ctx context.Context, w *Widget, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	var zero T

	if !w.loop.Post(func() {
		v, err := fn()
		ch <- result{v, err}
	}) {
		return zero, ErrClosed
	}

	select {
	case r := <-ch:
		return r.v, r.err
	case <-w.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
