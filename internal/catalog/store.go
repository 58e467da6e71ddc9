package catalog

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// ErrNotReady is returned by Get before a successful load
var ErrNotReady = errors.New("catalog not ready")

// State is the load state of a Store
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetcher is the part of the bridge the store needs
type Fetcher interface {
	FetchCatalog(folder string, onSuccess func(models.CatalogPayload), onFailure func(error))
}

// Store holds the catalog of one widget for its whole lifetime. It is
// confined to the widget event loop and is not safe for concurrent use.
type Store struct {
	fetcher   Fetcher
	folder    string
	state     State
	catalog   models.Catalog
	err       error
	listeners []func(State, error)
}

// NewStore creates an unloaded store for the given data folder
func NewStore(fetcher Fetcher, folder string) *Store {
	return &Store{
		fetcher: fetcher,
		folder:  folder,
	}
}

// Subscribe registers fn to be called when the load settles
func (s *Store) Subscribe(fn func(State, error)) {
	s.listeners = append(s.listeners, fn)
}

// Load issues the catalog request. Calls after the first are no-ops.
func (s *Store) Load() {
	if s.state != StateUnloaded {
		slog.Debug("Catalog load skipped", "folder", s.folder, "state", s.state)
		return
	}
	s.state = StateLoading
	slog.Info("Loading catalog", "folder", s.folder)

	s.fetcher.FetchCatalog(s.folder, s.onPayload, s.onFailure)
}

func (s *Store) onPayload(payload models.CatalogPayload) {
	catalog, err := Parse(payload)
	if err != nil {
		s.onFailure(err)
		return
	}
	s.catalog = catalog
	s.state = StateReady
	slog.Info("Catalog loaded", "folder", s.folder, "entries", len(catalog.Entries), "title", catalog.Title)
	s.notify()
}

func (s *Store) onFailure(err error) {
	s.err = err
	s.state = StateFailed
	slog.Error("Catalog load failed", "folder", s.folder, "err", err)
	s.notify()
}

func (s *Store) notify() {
	for _, fn := range s.listeners {
		fn(s.state, s.err)
	}
}

// IsReady reports whether a catalog is available
func (s *Store) IsReady() bool {
	return s.state == StateReady
}

// State returns the current load state
func (s *Store) State() State {
	return s.state
}

// Err returns the load failure, if any
func (s *Store) Err() error {
	return s.err
}

// Get returns the loaded catalog
func (s *Store) Get() (models.Catalog, error) {
	if s.state != StateReady {
		return models.Catalog{}, ErrNotReady
	}
	return s.catalog, nil
}
