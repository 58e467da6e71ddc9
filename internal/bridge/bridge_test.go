package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/gacha/internal/eventloop"
	"github.com/lehigh-university-libraries/gacha/internal/models"
)

type stubBackend struct {
	catalog models.CatalogPayload
	asset   models.AssetPayload
	err     error
	delay   time.Duration
	gotRef  models.AssetRef
}

func (b *stubBackend) FetchCatalog(ctx context.Context, _ string) (models.CatalogPayload, error) {
	if err := b.wait(ctx); err != nil {
		return models.CatalogPayload{}, err
	}
	return b.catalog, b.err
}

func (b *stubBackend) FetchAsset(ctx context.Context, _ string, ref models.AssetRef) (models.AssetPayload, error) {
	b.gotRef = ref
	if err := b.wait(ctx); err != nil {
		return models.AssetPayload{}, err
	}
	return b.asset, b.err
}

func (b *stubBackend) wait(ctx context.Context) error {
	if b.delay == 0 {
		return nil
	}
	select {
	case <-time.After(b.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle drains the loop until cond holds
func settle(t *testing.T, loop *eventloop.Loop, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		loop.Drain()
		return cond()
	}, 2*time.Second, time.Millisecond)
}

func TestAdapterDeliversOnLoop(t *testing.T) {
	loop := eventloop.New()
	backend := &stubBackend{catalog: models.CatalogPayload{ItemsYAML: "- {}"}}
	adapter := NewAdapter(context.Background(), backend, loop, time.Second)

	var got models.CatalogPayload
	calls := 0
	adapter.FetchCatalog("gacha1", func(p models.CatalogPayload) {
		got = p
		calls++
	}, func(err error) {
		t.Fatalf("unexpected failure: %v", err)
	})

	// nothing resolves until the loop runs
	assert.Equal(t, 0, calls)

	settle(t, loop, func() bool { return calls > 0 })
	assert.Equal(t, 1, calls)
	assert.Equal(t, "- {}", got.ItemsYAML)
}

func TestAdapterAssetRef(t *testing.T) {
	loop := eventloop.New()
	backend := &stubBackend{asset: models.AssetPayload{ImageData: "data:image/png;base64,AA==", MDContent: "# Sword"}}
	adapter := NewAdapter(context.Background(), backend, loop, 0)

	var got *models.AssetPayload
	adapter.FetchAsset("gacha1", models.AssetRef{Image: "sword.png", Description: "sword.md"}, func(p models.AssetPayload) {
		got = &p
	}, func(err error) {
		t.Fatalf("unexpected failure: %v", err)
	})

	settle(t, loop, func() bool { return got != nil })
	assert.Equal(t, "# Sword", got.MDContent)
	assert.Equal(t, models.AssetRef{Image: "sword.png", Description: "sword.md"}, backend.gotRef)
}

func TestAdapterFailure(t *testing.T) {
	loop := eventloop.New()
	backendErr := errors.New("Assets not found")
	adapter := NewAdapter(context.Background(), &stubBackend{err: backendErr}, loop, time.Second)

	var got error
	adapter.FetchAsset("gacha1", models.AssetRef{}, func(models.AssetPayload) {
		t.Fatal("unexpected success")
	}, func(err error) {
		got = err
	})

	settle(t, loop, func() bool { return got != nil })
	assert.ErrorIs(t, got, ErrBridgeFailure)
	assert.ErrorIs(t, got, backendErr)
}

func TestAdapterTimeout(t *testing.T) {
	loop := eventloop.New()
	adapter := NewAdapter(context.Background(), &stubBackend{delay: time.Minute}, loop, 10*time.Millisecond)

	var got error
	adapter.FetchCatalog("gacha1", func(models.CatalogPayload) {
		t.Fatal("unexpected success")
	}, func(err error) {
		got = err
	})

	settle(t, loop, func() bool { return got != nil })
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}

func TestRequestResolvesOnce(t *testing.T) {
	successes, failures := 0, 0
	req := newRequest(func(int) { successes++ }, func(error) { failures++ })

	req.succeed(1)
	req.fail(errors.New("late"))
	req.succeed(2)

	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, failures)
}
