// Package pull implements the draw lifecycle of a gacha widget:
//
//	Idle -> Drawing -> Revealing -> Idle
//	           \-----> Failed ----/
//
// Drawing selects the entry up front, then waits on two independent
// completions, the minimum animation timer and the asset fetch for that
// entry. Whichever completes last moves the machine to Revealing. An asset
// failure ends the pull immediately.
//
// A Machine is confined to its widget event loop: Start, Pull and every
// continuation run there, so the machine holds no locks.
package pull

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/lehigh-university-libraries/gacha/internal/catalog"
	"github.com/lehigh-university-libraries/gacha/internal/gacha"
	"github.com/lehigh-university-libraries/gacha/internal/models"
	"github.com/lehigh-university-libraries/gacha/internal/present"
)

// DefaultMinAnimation is how long the machine shakes at minimum
const DefaultMinAnimation = 2 * time.Second

var (
	// ErrBusy is returned when a pull is requested while one is in flight
	ErrBusy = errors.New("pull already in progress")
	// ErrNotReady is returned when a pull is requested before the catalog loaded
	ErrNotReady = errors.New("catalog not ready")
)

// State of the machine
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateRevealing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateRevealing:
		return "revealing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CatalogSource is the catalog store as seen by the machine
type CatalogSource interface {
	Load()
	IsReady() bool
	Get() (models.Catalog, error)
	Subscribe(fn func(catalog.State, error))
}

// AssetFetcher is the part of the bridge the machine needs
type AssetFetcher interface {
	FetchAsset(folder string, ref models.AssetRef, onSuccess func(models.AssetPayload), onFailure func(error))
}

// Renderer turns markdown into display markup
type Renderer interface {
	Render(markdown string) (string, error)
}

// Scheduler posts work onto the widget event loop
type Scheduler interface {
	Post(fn func()) bool
}

// Transition is reported to observers on every state change
type Transition struct {
	From    State
	To      State
	At      time.Time
	Session models.PullSession
	Err     error
}

// Config holds the machine settings
type Config struct {
	Folder       string
	MinAnimation time.Duration
}

// Deps are the collaborators of a Machine
type Deps struct {
	Catalog   CatalogSource
	Assets    AssetFetcher
	View      present.View
	Renderer  Renderer
	Clock     clock.WithDelayedExecution
	Scheduler Scheduler
	RNG       gacha.RNG
}

// Machine drives one widget
type Machine struct {
	cfg  Config
	deps Deps

	state     State
	session   *models.PullSession
	timer     clock.Timer
	revealed  bool
	pulls     uint64
	observers []func(Transition)
}

// New creates an idle machine. Call Start on the event loop to load the
// catalog.
func New(cfg Config, deps Deps) *Machine {
	if cfg.MinAnimation <= 0 {
		cfg.MinAnimation = DefaultMinAnimation
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	return &Machine{
		cfg:  cfg,
		deps: deps,
	}
}

// Observe registers fn to be told about every transition
func (m *Machine) Observe(fn func(Transition)) {
	m.observers = append(m.observers, fn)
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Start shows the initial view and loads the catalog
func (m *Machine) Start() {
	m.deps.View.SetTitle(catalog.DefaultTitle)
	m.deps.View.SetControl(false, present.LabelPull)
	m.deps.Catalog.Subscribe(m.onCatalog)
	m.deps.Catalog.Load()
}

func (m *Machine) onCatalog(state catalog.State, err error) {
	switch state {
	case catalog.StateReady:
		c, _ := m.deps.Catalog.Get()
		m.deps.View.SetTitle(c.Title)
		if m.state == StateIdle {
			m.deps.View.SetControl(true, m.label())
		}
	case catalog.StateFailed:
		m.deps.View.ShowError(fmt.Sprintf("failed to load catalog: %v", err))
		m.deps.View.SetControl(false, present.LabelPull)
	}
}

// Pull starts a draw. It must be called on the event loop.
func (m *Machine) Pull() error {
	if m.state != StateIdle {
		return ErrBusy
	}
	if !m.deps.Catalog.IsReady() {
		return ErrNotReady
	}
	c, err := m.deps.Catalog.Get()
	if err != nil {
		return err
	}

	m.pulls++
	s := &models.PullSession{ID: m.pulls, StartedAt: m.deps.Clock.Now()}
	m.session = s
	m.transition(StateDrawing, nil)

	m.deps.View.SetControl(false, m.label())
	m.deps.View.ClearResult()
	m.deps.View.SetShaking(true)
	m.deps.View.SetLoading(true)

	out, err := gacha.Draw(c, m.deps.RNG)
	if err != nil {
		slog.Error("Draw failed on a ready catalog", "folder", m.cfg.Folder, "err", err)
		m.fail(s, err)
		return err
	}
	s.Selected = out.Entry
	s.Promoted = out.Promoted
	s.FromGrade = out.FromGrade
	s.FakePromotion = out.FakePromotion
	slog.Debug("Entry selected", "pull", s.ID, "id", out.Entry.ID, "name", out.Entry.Name, "promoted", out.Promoted)

	switch {
	case out.Promoted:
		metricPromotions.WithLabelValues("real").Inc()
		m.deps.View.ShowPromotion(present.Promotion{FromGrade: out.FromGrade, ToGrade: out.Entry.Grade})
	case out.FakePromotion:
		metricPromotions.WithLabelValues("fake").Inc()
		slog.Info("Fake promotion triggered", "pull", s.ID)
		m.deps.View.ShowPromotion(present.Promotion{Fake: true, FromGrade: out.FromGrade})
	}

	j := newJoin(func() { m.reveal(s) })
	animationDone := j.arm()
	assetDone := j.arm()

	m.timer = m.deps.Clock.AfterFunc(m.cfg.MinAnimation, func() {
		m.deps.Scheduler.Post(func() {
			if m.session != s {
				return
			}
			s.AnimationDone = true
			animationDone()
		})
	})

	m.deps.Assets.FetchAsset(m.cfg.Folder, out.Entry.Ref(), func(p models.AssetPayload) {
		if m.session != s {
			return
		}
		bundle, err := m.bundle(p)
		if err != nil {
			m.fail(s, err)
			return
		}
		s.Asset = &bundle
		s.AssetResolved = true
		assetDone()
	}, func(err error) {
		if m.session != s {
			return
		}
		m.fail(s, err)
	})

	return nil
}

func (m *Machine) bundle(p models.AssetPayload) (models.AssetBundle, error) {
	html, err := m.deps.Renderer.Render(p.MDContent)
	if err != nil {
		return models.AssetBundle{}, err
	}
	return models.AssetBundle{ImageData: p.ImageData, DescriptionHTML: html}, nil
}

func (m *Machine) reveal(s *models.PullSession) {
	m.stopTimer()
	m.transition(StateRevealing, nil)

	m.deps.View.SetShaking(false)
	m.deps.View.SetLoading(false)
	m.deps.View.ShowResult(present.Result{
		Name:        s.Selected.Name,
		Image:       s.Asset.ImageData,
		Description: s.Asset.DescriptionHTML,
		Grade:       s.Selected.Grade,
	})
	m.revealed = true
	m.deps.View.SetControl(true, m.label())

	elapsed := m.deps.Clock.Since(s.StartedAt)
	metricPulls.WithLabelValues("revealed").Inc()
	metricRevealDelay.Observe(elapsed.Seconds())
	slog.Info("Item revealed", "pull", s.ID, "name", s.Selected.Name, "elapsed_ms", elapsed.Milliseconds())

	m.session = nil
	m.transitionFrom(s, StateIdle, nil)
}

func (m *Machine) fail(s *models.PullSession, err error) {
	m.stopTimer()
	m.transition(StateFailed, err)

	m.deps.View.SetShaking(false)
	m.deps.View.SetLoading(false)
	m.deps.View.ShowError(err.Error())
	m.deps.View.SetControl(true, m.label())

	metricPulls.WithLabelValues("failed").Inc()
	slog.Warn("Pull failed", "pull", s.ID, "err", err)

	m.session = nil
	m.transitionFrom(s, StateIdle, nil)
}

func (m *Machine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) label() string {
	if m.revealed {
		return present.LabelRepeat
	}
	return present.LabelPull
}

func (m *Machine) transition(to State, err error) {
	var s models.PullSession
	if m.session != nil {
		s = *m.session
	}
	m.transitionFrom(&s, to, err)
}

func (m *Machine) transitionFrom(s *models.PullSession, to State, err error) {
	from := m.state
	m.state = to
	t := Transition{From: from, To: to, At: m.deps.Clock.Now(), Session: *s, Err: err}
	for _, fn := range m.observers {
		fn(t)
	}
}
