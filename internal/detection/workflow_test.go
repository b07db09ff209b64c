package detection

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// Minimal payloads with the right magic bytes for content sniffing.
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
}

func jpegBytes() []byte {
	return append([]byte("\xff\xd8\xff\xe0"), make([]byte, 64)...)
}

func newTestWorkflow() *Workflow {
	return NewWorkflow(&CannedAnalyzer{}, 1024*1024)
}

func completeFlow(t *testing.T, dtype Type) (*Workflow, *Result) {
	t.Helper()
	wf := newTestWorkflow()
	if err := wf.SelectType(dtype); err != nil {
		t.Fatalf("SelectType(%s): %v", dtype, err)
	}
	if _, err := wf.LoadImage(pngBytes()); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	res, err := wf.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return wf, res
}

func TestFullFlowPerType(t *testing.T) {
	cases := []struct {
		dtype          Type
		wantConfidence float64
		wantDiagnosis  string
	}{
		{TypeSkin, 0.85, "Suspicious melanoma"},
		{TypeBrain, 0.82, "Possible meningioma"},
		{TypeDental, 0.88, "Periodontal disease"},
	}

	for _, tc := range cases {
		t.Run(string(tc.dtype), func(t *testing.T) {
			wf, res := completeFlow(t, tc.dtype)

			if wf.Phase() != PhaseCompleted {
				t.Errorf("phase = %v, want completed", wf.Phase())
			}
			if res.DetectionType != tc.dtype {
				t.Errorf("result type = %s, want %s", res.DetectionType, tc.dtype)
			}
			if res.Confidence != tc.wantConfidence {
				t.Errorf("confidence = %v, want %v", res.Confidence, tc.wantConfidence)
			}
			if res.Diagnosis != tc.wantDiagnosis {
				t.Errorf("diagnosis = %q, want %q", res.Diagnosis, tc.wantDiagnosis)
			}
			if len(res.Recommendations) != 3 {
				t.Errorf("recommendations = %d, want 3", len(res.Recommendations))
			}
			if len(res.Medications) == 0 {
				t.Error("no medications on result")
			}
			if len(res.NearbyDoctors) != 2 {
				t.Errorf("nearby doctors = %d, want 2", len(res.NearbyDoctors))
			}
		})
	}
}

func TestAnalyzePreconditions(t *testing.T) {
	wf := newTestWorkflow()

	if _, err := wf.Analyze(context.Background()); !errors.Is(err, ErrNoTypeSelected) {
		t.Errorf("Analyze from idle: err = %v, want ErrNoTypeSelected", err)
	}

	if err := wf.SelectType(TypeSkin); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if _, err := wf.Analyze(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Errorf("Analyze without image: err = %v, want ErrNoImage", err)
	}
}

func TestAnalyzeTwiceRequiresReset(t *testing.T) {
	wf, _ := completeFlow(t, TypeSkin)
	if _, err := wf.Analyze(context.Background()); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestLoadImageValidation(t *testing.T) {
	wf := newTestWorkflow()

	if _, err := wf.LoadImage(pngBytes()); !errors.Is(err, ErrNoTypeSelected) {
		t.Errorf("LoadImage from idle: err = %v, want ErrNoTypeSelected", err)
	}

	if err := wf.SelectType(TypeDental); err != nil {
		t.Fatalf("SelectType: %v", err)
	}

	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, ErrEmptyImage},
		{"text payload", []byte("definitely not an image"), ErrUnsupportedImage},
		{"gif", append([]byte("GIF89a"), make([]byte, 32)...), ErrUnsupportedImage},
		{"oversized", append(pngBytes(), make([]byte, 2*1024*1024)...), ErrImageTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := wf.LoadImage(tc.raw); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if wf.Phase() != PhaseTypeSelected {
				t.Errorf("phase = %v after rejected upload, want type_selected", wf.Phase())
			}
		})
	}
}

func TestLoadImageDataURI(t *testing.T) {
	wf := newTestWorkflow()
	if err := wf.SelectType(TypeSkin); err != nil {
		t.Fatalf("SelectType: %v", err)
	}

	raw := jpegBytes()
	img, err := wf.LoadImage(raw)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img.ContentType != "image/jpeg" {
		t.Errorf("content type = %q", img.ContentType)
	}
	if img.Size != len(raw) {
		t.Errorf("size = %d, want %d", img.Size, len(raw))
	}
	if !strings.HasPrefix(img.DataURI, "data:image/jpeg;base64,") {
		t.Errorf("data URI prefix wrong: %.40q", img.DataURI)
	}
	if wf.Phase() != PhaseImageLoaded {
		t.Errorf("phase = %v, want image_loaded", wf.Phase())
	}
}

func TestResetKeepsType(t *testing.T) {
	wf, _ := completeFlow(t, TypeBrain)

	wf.Reset()
	if wf.Phase() != PhaseTypeSelected {
		t.Errorf("phase = %v, want type_selected", wf.Phase())
	}
	if wf.Type() != TypeBrain {
		t.Errorf("type = %s, want brain", wf.Type())
	}
	if wf.Image() != nil || wf.Result() != nil {
		t.Error("image or result survived reset")
	}

	// The kept type allows a straight re-upload and re-analysis.
	if _, err := wf.LoadImage(pngBytes()); err != nil {
		t.Fatalf("LoadImage after reset: %v", err)
	}
	if _, err := wf.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze after reset: %v", err)
	}
}

func TestClearDropsEverything(t *testing.T) {
	wf, _ := completeFlow(t, TypeDental)

	wf.Clear()
	if wf.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", wf.Phase())
	}
	if wf.Type() != "" {
		t.Errorf("type = %q, want empty", wf.Type())
	}
}

func TestResetFromIdleStaysIdle(t *testing.T) {
	wf := newTestWorkflow()
	wf.Reset()
	if wf.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", wf.Phase())
	}
}

func TestSelectTypeDiscardsPriorWork(t *testing.T) {
	wf, _ := completeFlow(t, TypeSkin)

	if err := wf.SelectType(TypeBrain); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if wf.Phase() != PhaseTypeSelected {
		t.Errorf("phase = %v, want type_selected", wf.Phase())
	}
	if wf.Result() != nil || wf.Image() != nil {
		t.Error("prior image or result survived re-selection")
	}
}

func TestSelectTypeUnknown(t *testing.T) {
	wf := newTestWorkflow()
	if err := wf.SelectType("cardiac"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

// failingAnalyzer always errors, standing in for an upstream outage.
type failingAnalyzer struct {
	calls int
}

func (a *failingAnalyzer) Analyze(_ context.Context, _ Type, _ *Image) (*Result, error) {
	a.calls++
	if a.calls == 1 {
		return nil, errors.New("model unavailable")
	}
	res := cannedResults[TypeSkin]
	return &res, nil
}

func TestAnalyzeFailureAllowsRetry(t *testing.T) {
	wf := NewWorkflow(&failingAnalyzer{}, 0)
	if err := wf.SelectType(TypeSkin); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if _, err := wf.LoadImage(pngBytes()); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}

	if _, err := wf.Analyze(context.Background()); err == nil {
		t.Fatal("first Analyze succeeded, want failure")
	}
	if wf.Phase() != PhaseImageLoaded {
		t.Fatalf("phase = %v after failure, want image_loaded", wf.Phase())
	}

	if _, err := wf.Analyze(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if wf.Phase() != PhaseCompleted {
		t.Errorf("phase = %v, want completed", wf.Phase())
	}
}

// blockingAnalyzer parks until released so tests can race other operations
// against a suspended analysis.
type blockingAnalyzer struct {
	entered chan struct{}
	release chan struct{}
}

func (a *blockingAnalyzer) Analyze(ctx context.Context, t Type, _ *Image) (*Result, error) {
	close(a.entered)
	select {
	case <-a.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	res := cannedResults[t]
	return &res, nil
}

func TestAnalyzeCancellation(t *testing.T) {
	analyzer := &blockingAnalyzer{entered: make(chan struct{}), release: make(chan struct{})}
	wf := NewWorkflow(analyzer, 0)
	if err := wf.SelectType(TypeBrain); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if _, err := wf.LoadImage(pngBytes()); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := wf.Analyze(ctx)
		errc <- err
	}()

	<-analyzer.entered
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if wf.Phase() != PhaseImageLoaded {
		t.Errorf("phase = %v after cancellation, want image_loaded", wf.Phase())
	}
}

func TestResetDuringAnalysisSupersedes(t *testing.T) {
	analyzer := &blockingAnalyzer{entered: make(chan struct{}), release: make(chan struct{})}
	wf := NewWorkflow(analyzer, 0)
	if err := wf.SelectType(TypeSkin); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if _, err := wf.LoadImage(pngBytes()); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := wf.Analyze(context.Background())
		errc <- err
	}()

	<-analyzer.entered
	wf.Reset()
	close(analyzer.release)

	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if wf.Result() != nil {
		t.Error("stale result adopted after reset")
	}
	if wf.Phase() != PhaseTypeSelected {
		t.Errorf("phase = %v, want type_selected", wf.Phase())
	}
}

func TestDuplicateAnalyzeRejected(t *testing.T) {
	analyzer := &blockingAnalyzer{entered: make(chan struct{}), release: make(chan struct{})}
	wf := NewWorkflow(analyzer, 0)
	if err := wf.SelectType(TypeSkin); err != nil {
		t.Fatalf("SelectType: %v", err)
	}
	if _, err := wf.LoadImage(pngBytes()); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_, _ = wf.Analyze(context.Background())
		close(done)
	}()

	<-analyzer.entered
	if _, err := wf.Analyze(context.Background()); !errors.Is(err, ErrAnalyzing) {
		t.Fatalf("err = %v, want ErrAnalyzing", err)
	}
	close(analyzer.release)
	<-done
}

func TestCannedResultsTable(t *testing.T) {
	for _, opt := range Options() {
		res, ok := cannedResults[opt.ID]
		if !ok {
			t.Errorf("no canned result for %s", opt.ID)
			continue
		}
		if res.DetectionType != opt.ID {
			t.Errorf("%s result tagged %s", opt.ID, res.DetectionType)
		}
		if res.Confidence <= 0 || res.Confidence >= 1 {
			t.Errorf("%s confidence %v outside (0,1)", opt.ID, res.Confidence)
		}
		if res.Diagnosis == "" {
			t.Errorf("%s has empty diagnosis", opt.ID)
		}
		if len(res.Recommendations) == 0 {
			t.Errorf("%s has no recommendations", opt.ID)
		}
	}
	if len(cannedResults) != len(Options()) {
		t.Errorf("canned results = %d entries, options = %d", len(cannedResults), len(Options()))
	}
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"skin", "brain", "dental"} {
		if _, ok := ParseType(s); !ok {
			t.Errorf("ParseType(%q) rejected", s)
		}
	}
	for _, s := range []string{"", "Skin", "xray"} {
		if _, ok := ParseType(s); ok {
			t.Errorf("ParseType(%q) accepted", s)
		}
	}
}
