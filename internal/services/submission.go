package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/thomas-x-69/exams-sub001/internal/exam"
)

// SubmissionPayload is the minimal projection of a result the external
// recording service accepts.
type SubmissionPayload struct {
	Name                string `json:"name"`
	SubjectName         string `json:"subjectName"`
	TotalScore          int    `json:"totalScore"`
	BehavioralScore     int    `json:"behavioralScore"`
	LanguageScore       int    `json:"languageScore"`
	KnowledgeScore      int    `json:"knowledgeScore"`
	SpecializationScore int    `json:"specializationScore"`
}

// SubmissionResponse is the recording service's reply shape.
type SubmissionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SubmissionGateway forwards finished results to the external recording
// endpoint. Strictly best-effort: the result is already durably persisted
// before Forward is called, and a failed forward is only logged.
type SubmissionGateway struct {
	log      *zap.Logger
	endpoint string
	client   *http.Client
}

func NewSubmissionGateway(log *zap.Logger, endpoint string, timeout time.Duration) *SubmissionGateway {
	return &SubmissionGateway{
		log:      log,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Forward sends the result projection without blocking the caller.
func (g *SubmissionGateway) Forward(r exam.Result) {
	if g.endpoint == "" {
		g.log.Debug("No submission endpoint configured, skipping forward",
			zap.String("storage_key", r.StorageKey))
		return
	}

	payload := BuildPayload(r)
	go func() {
		if err := g.send(payload); err != nil {
			g.log.Warn("Result forwarding failed",
				zap.String("storage_key", r.StorageKey),
				zap.Error(err))
			return
		}
		g.log.Info("Result forwarded to recording service",
			zap.String("storage_key", r.StorageKey),
			zap.String("subject", r.Subject))
	}()
}

func (g *SubmissionGateway) send(payload SubmissionPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode submission payload: %w", err)
	}

	resp, err := g.client.Post(g.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to reach recording service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("recording service returned status %d", resp.StatusCode)
	}

	var reply SubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("failed to decode recording service reply: %w", err)
	}
	if reply.Status != "success" {
		return fmt.Errorf("recording service rejected submission: %s", reply.Message)
	}
	return nil
}

// BuildPayload projects a result onto the recording endpoint's shape.
// Sub-phase percentages collapse to a mean per main phase.
func BuildPayload(r exam.Result) SubmissionPayload {
	return SubmissionPayload{
		Name:                r.UserName,
		SubjectName:         r.Subject,
		TotalScore:          r.TotalScore,
		BehavioralScore:     mainPhaseScore(r.PhaseScores, "behavioral"),
		LanguageScore:       mainPhaseScore(r.PhaseScores, "language"),
		KnowledgeScore:      mainPhaseScore(r.PhaseScores, "knowledge"),
		SpecializationScore: mainPhaseScore(r.PhaseScores, "specialization"),
	}
}

func mainPhaseScore(phaseScores map[string]int, main string) int {
	sum, count := 0, 0
	for key, pct := range phaseScores {
		if exam.ParsePhaseID(key).Main == main {
			sum += pct
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count)))
}
