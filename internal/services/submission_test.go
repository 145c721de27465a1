package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thomas-x-69/exams-sub001/internal/exam"
)

func testResult() exam.Result {
	return exam.Result{
		StorageKey: "result_1_test",
		TotalScore: 72,
		PhaseScores: map[string]int{
			"behavioral":        80,
			"language_arabic":   60,
			"language_english":  80,
			"knowledge_iq":      90,
			"knowledge_general": 70,
			"knowledge_it":      50,
			"specialization":    75,
		},
		UserName: "Mona",
		Subject:  "math",
	}
}

func TestBuildPayload(t *testing.T) {
	payload := BuildPayload(testResult())

	if payload.Name != "Mona" || payload.SubjectName != "math" {
		t.Errorf("identity fields = %q %q", payload.Name, payload.SubjectName)
	}
	if payload.TotalScore != 72 {
		t.Errorf("TotalScore = %d, want 72", payload.TotalScore)
	}
	if payload.BehavioralScore != 80 {
		t.Errorf("BehavioralScore = %d, want 80", payload.BehavioralScore)
	}
	// Sub-phases collapse to their mean: (60+80)/2 and (90+70+50)/3.
	if payload.LanguageScore != 70 {
		t.Errorf("LanguageScore = %d, want 70", payload.LanguageScore)
	}
	if payload.KnowledgeScore != 70 {
		t.Errorf("KnowledgeScore = %d, want 70", payload.KnowledgeScore)
	}
	if payload.SpecializationScore != 75 {
		t.Errorf("SpecializationScore = %d, want 75", payload.SpecializationScore)
	}
}

func TestBuildPayloadMissingPhaseGroup(t *testing.T) {
	r := testResult()
	delete(r.PhaseScores, "specialization")
	if got := BuildPayload(r).SpecializationScore; got != 0 {
		t.Errorf("SpecializationScore = %d, want 0 when the group is absent", got)
	}
}

func TestSend(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		wantErr bool
	}{
		{"accepted", http.StatusOK, `{"status":"success","message":"recorded"}`, false},
		{"rejected by service", http.StatusOK, `{"status":"error","message":"duplicate"}`, true},
		{"server error", http.StatusInternalServerError, `{}`, true},
		{"garbage reply", http.StatusOK, `not json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received SubmissionPayload
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
					t.Errorf("decoding request body: %v", err)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.reply))
			}))
			defer srv.Close()

			g := NewSubmissionGateway(zap.NewNop(), srv.URL, time.Second)
			err := g.send(BuildPayload(testResult()))
			if (err != nil) != tt.wantErr {
				t.Fatalf("send error = %v, wantErr %v", err, tt.wantErr)
			}
			if received.Name != "Mona" {
				t.Errorf("service received name %q, want %q", received.Name, "Mona")
			}
		})
	}
}

func TestForward(t *testing.T) {
	done := make(chan SubmissionPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var payload SubmissionPayload
		json.NewDecoder(req.Body).Decode(&payload)
		done <- payload
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	g := NewSubmissionGateway(zap.NewNop(), srv.URL, time.Second)
	g.Forward(testResult())

	select {
	case payload := <-done:
		if payload.TotalScore != 72 {
			t.Errorf("forwarded TotalScore = %d, want 72", payload.TotalScore)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("forward never reached the recording service")
	}
}

func TestForwardWithoutEndpoint(t *testing.T) {
	g := NewSubmissionGateway(zap.NewNop(), "", time.Second)
	// Must be a silent no-op, not a panic or a dial attempt.
	g.Forward(testResult())
}
