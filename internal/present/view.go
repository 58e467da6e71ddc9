package present

// Control labels and CSS state classes of the widget surface
const (
	LabelPull   = "ガチャを回す！"
	LabelRepeat = "もう一度回す"

	ClassShake         = "shake"
	ClassLoading       = "loading"
	ClassPromotion     = "promotion"
	ClassFakePromotion = "fake-promotion"
)

// Result is what the result container shows after a reveal
type Result struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Grade       string `json:"grade,omitempty"`
}

// Promotion describes the effect to play while the machine shakes
type Promotion struct {
	Fake      bool   `json:"fake"`
	FromGrade string `json:"from_grade,omitempty"`
	ToGrade   string `json:"to_grade,omitempty"`
}

// View is the presentation sink driven by the pull state machine. Calls
// arrive on the widget event loop.
type View interface {
	SetTitle(title string)
	SetControl(enabled bool, label string)
	SetShaking(on bool)
	SetLoading(on bool)
	ShowPromotion(p Promotion)
	ClearResult()
	ShowResult(r Result)
	ShowError(msg string)
}
