package present

import (
	"sort"
	"sync"
)

// Control is the draw button
type Control struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
}

// ViewState is a point-in-time copy of everything the widget shows
type ViewState struct {
	Title     string     `json:"title"`
	Control   Control    `json:"control"`
	Classes   []string   `json:"classes"`
	Loading   bool       `json:"loading"`
	Promotion *Promotion `json:"promotion,omitempty"`
	Result    *Result    `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	Version   uint64     `json:"version"`
}

// Snapshot is a View that keeps the latest state in memory so it can be
// read from other goroutines, e.g. HTTP handlers.
type Snapshot struct {
	mu      sync.RWMutex
	state   ViewState
	classes map[string]bool
}

// NewSnapshot creates a snapshot with the control disabled
func NewSnapshot() *Snapshot {
	return &Snapshot{
		state:   ViewState{Control: Control{Label: LabelPull}},
		classes: make(map[string]bool),
	}
}

// State returns a copy of the current state
func (s *Snapshot) State() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Classes = make([]string, 0, len(s.classes))
	for c, on := range s.classes {
		if on {
			out.Classes = append(out.Classes, c)
		}
	}
	sort.Strings(out.Classes)
	if s.state.Result != nil {
		r := *s.state.Result
		out.Result = &r
	}
	if s.state.Promotion != nil {
		p := *s.state.Promotion
		out.Promotion = &p
	}
	return out
}

func (s *Snapshot) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.state.Version++
}

func (s *Snapshot) SetTitle(title string) {
	s.update(func() { s.state.Title = title })
}

func (s *Snapshot) SetControl(enabled bool, label string) {
	s.update(func() { s.state.Control = Control{Enabled: enabled, Label: label} })
}

func (s *Snapshot) SetShaking(on bool) {
	s.update(func() {
		s.classes[ClassShake] = on
		if !on {
			s.classes[ClassPromotion] = false
			s.classes[ClassFakePromotion] = false
		}
	})
}

func (s *Snapshot) SetLoading(on bool) {
	s.update(func() {
		s.state.Loading = on
		s.classes[ClassLoading] = on
	})
}

func (s *Snapshot) ShowPromotion(p Promotion) {
	s.update(func() {
		s.state.Promotion = &p
		if p.Fake {
			s.classes[ClassFakePromotion] = true
		} else {
			s.classes[ClassPromotion] = true
		}
	})
}

func (s *Snapshot) ClearResult() {
	s.update(func() {
		s.state.Result = nil
		s.state.Promotion = nil
		s.state.Error = ""
	})
}

func (s *Snapshot) ShowResult(r Result) {
	s.update(func() { s.state.Result = &r })
}

func (s *Snapshot) ShowError(msg string) {
	s.update(func() { s.state.Error = msg })
}
