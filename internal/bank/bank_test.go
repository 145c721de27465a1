package bank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validCatalog = `
version: "test"
subjects:
  mail:
    phases:
      behavioral:
        questions:
          - id: beh1
            text: "How do you handle conflict?"
            options: ["Talk it out", "Escalate", "Ignore it"]
            correct_answer: 0
            points: [5, 3, 1]
      language:
        subphases:
          arabic:
            questions:
              - id: ar1
                text: "Pick the plural."
                options: ["A", "B"]
                correct_answer: 0
      specialization:
        questions:
          - id: mail1
            text: "Sort order?"
            options: ["Yes", "No"]
            correct_answer: 0
  math:
    phases:
      specialization:
        questions:
          - id: math1
            text: "2+2?"
            options: ["4", "5"]
            correct_answer: 0
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}
	return path
}

func TestLoadValidCatalog(t *testing.T) {
	b, err := Load(writeCatalog(t, validCatalog), "mail")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if b.Version != "test" {
		t.Errorf("Version = %q, want %q", b.Version, "test")
	}
	if !b.HasSubject("math") {
		t.Error("expected subject math to be present")
	}
}

func TestLoadRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		wantErr string
	}{
		{
			name:    "missing file entirely",
			catalog: "",
			wantErr: "read",
		},
		{
			name: "missing canonical subject",
			catalog: `
subjects:
  math:
    phases:
      specialization:
        questions:
          - {id: q1, text: "t", options: ["a", "b"], correct_answer: 0}
`,
			wantErr: "canonical subject",
		},
		{
			name: "too few options",
			catalog: `
subjects:
  mail:
    phases:
      behavioral:
        questions:
          - {id: q1, text: "t", options: ["only one"], correct_answer: 0}
`,
			wantErr: "2-5 options",
		},
		{
			name: "too many options",
			catalog: `
subjects:
  mail:
    phases:
      behavioral:
        questions:
          - {id: q1, text: "t", options: ["a", "b", "c", "d", "e", "f"], correct_answer: 0}
`,
			wantErr: "2-5 options",
		},
		{
			name: "correct answer out of range",
			catalog: `
subjects:
  mail:
    phases:
      behavioral:
        questions:
          - {id: q1, text: "t", options: ["a", "b"], correct_answer: 2}
`,
			wantErr: "out of range",
		},
		{
			name: "points length mismatch",
			catalog: `
subjects:
  mail:
    phases:
      behavioral:
        questions:
          - {id: q1, text: "t", options: ["a", "b", "c"], correct_answer: 0, points: [5, 3]}
`,
			wantErr: "points",
		},
		{
			name: "negative point weight",
			catalog: `
subjects:
  mail:
    phases:
      behavioral:
        questions:
          - {id: q1, text: "t", options: ["a", "b"], correct_answer: 0, points: [5, -1]}
`,
			wantErr: "invalid point weight",
		},
		{
			name: "empty question id",
			catalog: `
subjects:
  mail:
    phases:
      behavioral:
        questions:
          - {id: "", text: "t", options: ["a", "b"], correct_answer: 0}
`,
			wantErr: "empty id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.catalog != "" {
				path = writeCatalog(t, tt.catalog)
			}
			_, err := Load(path, "mail")
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	b, err := Load(writeCatalog(t, validCatalog), "mail")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	tests := []struct {
		name      string
		subject   string
		mainPhase string
		subPhase  string
		wantIDs   []string
	}{
		{"direct phase", "mail", "behavioral", "", []string{"beh1"}},
		{"sub-phase", "mail", "language", "arabic", []string{"ar1"}},
		{"subject-specific specialization", "math", "specialization", "", []string{"math1"}},
		{"shared phase falls back to canonical", "math", "behavioral", "", []string{"beh1"}},
		{"unknown subject falls back to canonical", "nonsense", "specialization", "", []string{"mail1"}},
		{"missing everywhere", "mail", "astrology", "", nil},
		{"missing sub-phase", "mail", "language", "latin", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := b.Resolve(tt.subject, tt.mainPhase, tt.subPhase)
			if len(questions) != len(tt.wantIDs) {
				t.Fatalf("got %d questions, want %d", len(questions), len(tt.wantIDs))
			}
			for i, q := range questions {
				if q.ID != tt.wantIDs[i] {
					t.Errorf("question[%d].ID = %q, want %q", i, q.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestQuestionWeighting(t *testing.T) {
	weighted := Question{ID: "q", Options: []string{"a", "b", "c"}, Points: []float64{2, 5, 1}}
	if !weighted.Weighted() {
		t.Error("question with points should report Weighted")
	}
	if got := weighted.MaxPoints(); got != 5 {
		t.Errorf("MaxPoints = %v, want 5", got)
	}

	binary := Question{ID: "q", Options: []string{"a", "b"}, CorrectAnswer: 1}
	if binary.Weighted() {
		t.Error("question without points should not report Weighted")
	}
	if got := binary.MaxPoints(); got != 0 {
		t.Errorf("MaxPoints = %v, want 0", got)
	}
}
