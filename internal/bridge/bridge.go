package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// ErrBridgeFailure wraps every failure delivered through a continuation
var ErrBridgeFailure = errors.New("bridge request failed")

// Bridge is the asynchronous, continuation based view of a backend. Each
// call resolves exactly once, to either onSuccess or onFailure, on a later
// turn of the caller's event loop.
type Bridge interface {
	FetchCatalog(folder string, onSuccess func(models.CatalogPayload), onFailure func(error))
	FetchAsset(folder string, ref models.AssetRef, onSuccess func(models.AssetPayload), onFailure func(error))
}

// Backend performs the actual requests, synchronously
type Backend interface {
	FetchCatalog(ctx context.Context, folder string) (models.CatalogPayload, error)
	FetchAsset(ctx context.Context, folder string, ref models.AssetRef) (models.AssetPayload, error)
}

// Scheduler delivers continuations onto the event loop
type Scheduler interface {
	Post(fn func()) bool
}

// Adapter turns a Backend into a Bridge by running each request on its own
// goroutine and posting the outcome back to the scheduler.
type Adapter struct {
	backend   Backend
	scheduler Scheduler
	timeout   time.Duration
	ctx       context.Context
}

// NewAdapter creates an adapter. ctx bounds every request the adapter
// issues; timeout, when positive, bounds each one individually.
func NewAdapter(ctx context.Context, backend Backend, scheduler Scheduler, timeout time.Duration) *Adapter {
	return &Adapter{
		backend:   backend,
		scheduler: scheduler,
		timeout:   timeout,
		ctx:       ctx,
	}
}

// FetchCatalog implements Bridge
func (a *Adapter) FetchCatalog(folder string, onSuccess func(models.CatalogPayload), onFailure func(error)) {
	issue(a, "catalog", func(ctx context.Context) (models.CatalogPayload, error) {
		return a.backend.FetchCatalog(ctx, folder)
	}, onSuccess, onFailure)
}

// FetchAsset implements Bridge
func (a *Adapter) FetchAsset(folder string, ref models.AssetRef, onSuccess func(models.AssetPayload), onFailure func(error)) {
	issue(a, "asset", func(ctx context.Context) (models.AssetPayload, error) {
		return a.backend.FetchAsset(ctx, folder, ref)
	}, onSuccess, onFailure)
}

func issue[T any](a *Adapter, op string, call func(context.Context) (T, error), onSuccess func(T), onFailure func(error)) {
	req := newRequest(onSuccess, onFailure)

	go func() {
		ctx := a.ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}

		start := time.Now()
		payload, err := call(ctx)
		slog.Debug("Bridge request finished", "op", op, "duration_ms", time.Since(start).Milliseconds(), "err", err)

		posted := a.scheduler.Post(func() {
			if err != nil {
				req.fail(fmt.Errorf("%w: %s: %w", ErrBridgeFailure, op, err))
				return
			}
			req.succeed(payload)
		})
		if !posted {
			slog.Debug("Bridge result dropped, event loop closed", "op", op)
		}
	}()
}

// request guarantees a single resolution per call
type request[T any] struct {
	once      sync.Once
	onSuccess func(T)
	onFailure func(error)
}

func newRequest[T any](onSuccess func(T), onFailure func(error)) *request[T] {
	return &request[T]{onSuccess: onSuccess, onFailure: onFailure}
}

func (r *request[T]) succeed(v T) {
	r.once.Do(func() { r.onSuccess(v) })
}

func (r *request[T]) fail(err error) {
	r.once.Do(func() { r.onFailure(err) })
}
