// Package detection drives a single AI-detection session from type
// selection through image upload, simulated analysis and result display.
package detection

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
)

// Type selects which analysis pipeline and result payload applies.
type Type string

const (
	TypeSkin   Type = "skin"
	TypeBrain  Type = "brain"
	TypeDental Type = "dental"
)

// ParseType maps a wire string onto a detection Type.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeSkin, TypeBrain, TypeDental:
		return Type(s), true
	}
	return "", false
}

// Phase is the position of a workflow in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTypeSelected
	PhaseImageLoaded
	PhaseAnalyzing
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTypeSelected:
		return "type_selected"
	case PhaseImageLoaded:
		return "image_loaded"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

var (
	ErrUnknownType      = errors.New("detection: unknown detection type")
	ErrNoTypeSelected   = errors.New("detection: no detection type selected")
	ErrNoImage          = errors.New("detection: no image loaded")
	ErrAnalyzing        = errors.New("detection: analysis already in progress")
	ErrAlreadyCompleted = errors.New("detection: result already present, reset first")
	ErrEmptyImage       = errors.New("detection: empty image payload")
	ErrUnsupportedImage = errors.New("detection: only JPEG and PNG images are supported")
	ErrImageTooLarge    = errors.New("detection: image exceeds size limit")
	// ErrSuperseded reports that the workflow was reset or retargeted
	// while an analysis was suspended; the stale result is discarded.
	ErrSuperseded = errors.New("detection: workflow changed during analysis")
)

// Image is the decoded, displayable form of an uploaded payload.
type Image struct {
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	DataURI     string `json:"data_uri"`
}

// Analyzer produces exactly one result for a type+image pair. The canned
// analyzer is the production implementation; tests substitute failures.
type Analyzer interface {
	Analyze(ctx context.Context, t Type, img *Image) (*Result, error)
}

// Workflow is the per-session detection state machine. All operations are
// safe for the single caller the API enforces; the mutex guards against a
// reset racing a suspended analysis.
type Workflow struct {
	analyzer Analyzer
	maxBytes int64

	mu     sync.Mutex
	phase  Phase
	dtype  Type
	image  *Image
	result *Result
	gen    uint64 // bumped on every mutation; detects stale analyses
}

func NewWorkflow(analyzer Analyzer, maxImageBytes int64) *Workflow {
	return &Workflow{analyzer: analyzer, maxBytes: maxImageBytes, phase: PhaseIdle}
}

// SelectType enters TypeSelected for the given type, discarding any prior
// image and result. Selecting the current type again is a no-op beyond the
// discard, so the call is idempotent from Idle.
func (w *Workflow) SelectType(t Type) error {
	if _, ok := ParseType(string(t)); !ok {
		return ErrUnknownType
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dtype = t
	w.image = nil
	w.result = nil
	w.phase = PhaseTypeSelected
	w.gen++
	return nil
}

// LoadImage decodes a raw upload into a data-URI representation and moves
// TypeSelected → ImageLoaded. Rejected payloads leave the phase unchanged.
func (w *Workflow) LoadImage(raw []byte) (*Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.phase {
	case PhaseIdle:
		return nil, ErrNoTypeSelected
	case PhaseAnalyzing:
		return nil, ErrAnalyzing
	}

	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	if w.maxBytes > 0 && int64(len(raw)) > w.maxBytes {
		return nil, ErrImageTooLarge
	}
	ct := http.DetectContentType(raw)
	if ct != "image/jpeg" && ct != "image/png" {
		return nil, ErrUnsupportedImage
	}

	img := &Image{
		ContentType: ct,
		Size:        len(raw),
		DataURI:     "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(raw),
	}
	w.image = img
	w.result = nil
	w.phase = PhaseImageLoaded
	w.gen++

	out := *img
	return &out, nil
}

// Analyze runs the suspended analysis for the loaded image. Precondition:
// phase is ImageLoaded. Cancellation or analyzer failure returns the
// workflow to ImageLoaded so the caller can retry; success moves to
// Completed with a result whose type matches the selection.
func (w *Workflow) Analyze(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	switch w.phase {
	case PhaseAnalyzing:
		w.mu.Unlock()
		return nil, ErrAnalyzing
	case PhaseCompleted:
		w.mu.Unlock()
		return nil, ErrAlreadyCompleted
	case PhaseIdle:
		w.mu.Unlock()
		return nil, ErrNoTypeSelected
	case PhaseTypeSelected:
		w.mu.Unlock()
		return nil, ErrNoImage
	}
	t := w.dtype
	img := w.image
	w.phase = PhaseAnalyzing
	gen := w.gen
	w.mu.Unlock()

	res, err := w.analyzer.Analyze(ctx, t, img)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		// Reset or re-selection won while we were suspended.
		return nil, ErrSuperseded
	}
	if err != nil {
		w.phase = PhaseImageLoaded
		return nil, err
	}
	w.result = res
	w.phase = PhaseCompleted
	w.gen++

	out := *res
	return &out, nil
}

// Reset clears the image and result and returns to TypeSelected with the
// type preserved, or to Idle when no type was ever chosen.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.image = nil
	w.result = nil
	w.gen++
	if w.dtype != "" {
		w.phase = PhaseTypeSelected
	} else {
		w.phase = PhaseIdle
	}
}

// Clear returns the workflow to the top-level selector: Idle, no type, no
// image, no result.
func (w *Workflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dtype = ""
	w.image = nil
	w.result = nil
	w.phase = PhaseIdle
	w.gen++
}

func (w *Workflow) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

func (w *Workflow) Type() Type {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dtype
}

// Image returns a copy of the loaded image, or nil.
func (w *Workflow) Image() *Image {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.image == nil {
		return nil
	}
	out := *w.image
	return &out
}

// Result returns a copy of the completed result, or nil.
func (w *Workflow) Result() *Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return nil
	}
	out := *w.result
	return &out
}
