package detection

import (
	"context"
	"time"
)

// Medication is one prescribed item on a result.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration"`
	Notes     string `json:"notes,omitempty"`
}

// NearbyDoctor is a referral suggestion attached to a result.
type NearbyDoctor struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Location       string `json:"location"`
	Contact        string `json:"contact"`
}

// Result is the outcome of one analysis. Confidence is strictly within
// (0,1) and Recommendations is never empty.
type Result struct {
	DetectionType   Type           `json:"detection_type"`
	Confidence      float64        `json:"confidence"`
	Diagnosis       string         `json:"diagnosis"`
	Recommendations []string       `json:"recommendations"`
	Medications     []Medication   `json:"medications"`
	NearbyDoctors   []NearbyDoctor `json:"nearby_doctors"`
}

// Option describes one detection pipeline for the type-selection screen.
type Option struct {
	ID          Type   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Options returns the selectable detection types in display order.
func Options() []Option {
	return []Option{
		{ID: TypeSkin, Title: "Skin Cancer Detection", Description: "Upload images of skin conditions for AI analysis with 85% accuracy"},
		{ID: TypeBrain, Title: "Brain Tumor Detection", Description: "Upload MRI scans for AI-powered brain tumor detection"},
		{ID: TypeDental, Title: "Dental Issue Detection", Description: "Upload dental images for AI analysis of common issues"},
	}
}

// cannedResults is the finite per-type result table the simulated model
// returns from. One entry per Type; addition of a new Type must extend it.
var cannedResults = map[Type]Result{
	TypeSkin: {
		DetectionType: TypeSkin,
		Confidence:    0.85,
		Diagnosis:     "Suspicious melanoma",
		Recommendations: []string{
			"Consult with a dermatologist immediately",
			"Further biopsy recommended to confirm diagnosis",
			"Avoid sun exposure to the affected area",
		},
		Medications: []Medication{
			{Name: "Topical corticosteroid cream", Dosage: "Apply thin layer twice daily", Duration: "7 days"},
		},
		NearbyDoctors: []NearbyDoctor{
			{Name: "Dr. Patel", Specialization: "Dermatology", Location: "Vadodara", Contact: "+91-9876543210"},
			{Name: "Dr. Sharma", Specialization: "Oncology", Location: "Vadodara", Contact: "+91-9876543211"},
		},
	},
	TypeBrain: {
		DetectionType: TypeBrain,
		Confidence:    0.82,
		Diagnosis:     "Possible meningioma",
		Recommendations: []string{
			"Consult with a neurologist immediately",
			"Additional MRI with contrast recommended",
			"Consider neurosurgical consultation",
		},
		Medications: []Medication{
			{Name: "Dexamethasone", Dosage: "4mg twice daily", Duration: "As directed by neurologist"},
		},
		NearbyDoctors: []NearbyDoctor{
			{Name: "Dr. Gupta", Specialization: "Neurology", Location: "Vadodara", Contact: "+91-9876543212"},
			{Name: "Dr. Singh", Specialization: "Neurosurgery", Location: "Vadodara", Contact: "+91-9876543213"},
		},
	},
	TypeDental: {
		DetectionType: TypeDental,
		Confidence:    0.88,
		Diagnosis:     "Periodontal disease",
		Recommendations: []string{
			"Schedule dental appointment for professional cleaning",
			"Improve oral hygiene practices",
			"Regular flossing recommended",
		},
		Medications: []Medication{
			{Name: "Chlorhexidine mouthwash", Dosage: "Rinse twice daily for 30 seconds", Duration: "14 days"},
		},
		NearbyDoctors: []NearbyDoctor{
			{Name: "Dr. Joshi", Specialization: "Dentistry", Location: "Vadodara", Contact: "+91-9876543214"},
			{Name: "Dr. Kumar", Specialization: "Periodontist", Location: "Vadodara", Contact: "+91-9876543215"},
		},
	},
}

// CannedAnalyzer stands in for the real inference service: it suspends for
// the configured latency, then returns the fixed result for the type. The
// image content never influences the outcome.
type CannedAnalyzer struct {
	Delay time.Duration
}

func (a *CannedAnalyzer) Analyze(ctx context.Context, t Type, _ *Image) (*Result, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	res, ok := cannedResults[t]
	if !ok {
		return nil, ErrUnknownType
	}
	out := res
	return &out, nil
}
