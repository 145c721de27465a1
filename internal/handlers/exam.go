package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thomas-x-69/exams-sub001/internal/bank"
	"github.com/thomas-x-69/exams-sub001/internal/config"
	"github.com/thomas-x-69/exams-sub001/internal/exam"
	"github.com/thomas-x-69/exams-sub001/internal/models"
	"github.com/thomas-x-69/exams-sub001/internal/repository"
	"github.com/thomas-x-69/exams-sub001/internal/utils"
)

const sessionKeyName = "examSessionKey"

type ExamHandler struct {
	log        *zap.Logger
	bank       *bank.Bank
	aggregator *exam.Aggregator
}

func NewExamHandler(log *zap.Logger, b *bank.Bank, aggregator *exam.Aggregator) *ExamHandler {
	return &ExamHandler{log: log, bank: b, aggregator: aggregator}
}

// stateResponse is the snapshot the client polls each tick.
type stateResponse struct {
	ActiveExam       bool           `json:"activeExam"`
	State            exam.State     `json:"state"`
	Subject          string         `json:"subject,omitempty"`
	UserName         string         `json:"userName,omitempty"`
	OrganizationCode string         `json:"organizationCode,omitempty"`
	CurrentPhase     string         `json:"currentPhase,omitempty"`
	PhaseIndex       int            `json:"phaseIndex"`
	PhaseCount       int            `json:"phaseCount"`
	RemainingSeconds int            `json:"remainingSeconds"`
	CompletedPhases  []string       `json:"completedPhases,omitempty"`
	ExamCompleted    bool           `json:"examCompleted"`
	PhaseScores      map[string]int `json:"phaseScores,omitempty"`
}

// clientQuestion is a question with its answer key stripped. The browser
// never sees correct answers or point weights.
type clientQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type startRequest struct {
	Subject  string `json:"subject" binding:"required"`
	UserName string `json:"userName" binding:"required"`
}

type answerRequest struct {
	Phase         string `json:"phase" binding:"required"`
	QuestionID    string `json:"questionId" binding:"required"`
	SelectedIndex *int   `json:"selectedIndex" binding:"required"`
}

type finishPhaseRequest struct {
	Phase string `json:"phase" binding:"required"`
}

// sessionKey returns the stable per-browser key the attempt row hangs off,
// creating one on first use.
func sessionKey(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if key, ok := session.Get(sessionKeyName).(string); ok && key != "" {
		return key, nil
	}
	key := uuid.NewString()
	session.Set(sessionKeyName, key)
	if err := session.Save(); err != nil {
		return "", err
	}
	return key, nil
}

// newSequencer builds a sequencer with the currently configured durations.
func (h *ExamHandler) newSequencer() *exam.Sequencer {
	return exam.NewSequencer(h.bank, h.log,
		config.Conf.Exam.PhaseDuration(),
		config.Conf.Exam.BreakDuration())
}

// loadAttempt restores the session's attempt into a sequencer and catches it
// up against the wall clock. A record that fails to parse is treated as
// absent and removed. Returns the sequencer (attempt may be nil) and whether
// the restored attempt had been flagged by the unload beacon.
func (h *ExamHandler) loadAttempt(c *gin.Context, key string) (*exam.Sequencer, bool, error) {
	seq := h.newSequencer()

	record, err := repository.GetAttempt(c.Request.Context(), key)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return seq, false, nil
	}

	attempt, err := record.ToAttempt()
	if err != nil {
		h.log.Warn("Discarding corrupted attempt record",
			zap.String("session_key", key), zap.Error(err))
		if delErr := repository.DeleteAttempt(c.Request.Context(), key); delErr != nil {
			h.log.Error("Failed to delete corrupted attempt record", zap.Error(delErr))
		}
		return seq, false, nil
	}

	seq.Attach(attempt)
	seq.Tick(time.Now())
	return seq, record.WasReloaded, nil
}

// saveAttempt persists the sequencer's attempt (or deletes the row when the
// attempt was abandoned).
func (h *ExamHandler) saveAttempt(c *gin.Context, key string, seq *exam.Sequencer) error {
	attempt := seq.Attempt()
	if attempt == nil {
		return repository.DeleteAttempt(c.Request.Context(), key)
	}

	record := &models.AttemptRecord{SessionKey: key}
	if err := record.FromAttempt(attempt); err != nil {
		return err
	}
	return repository.SaveAttempt(c.Request.Context(), record)
}

func (h *ExamHandler) snapshot(seq *exam.Sequencer) stateResponse {
	attempt := seq.Attempt()
	if attempt == nil {
		return stateResponse{ActiveExam: false, State: exam.StateNotStarted}
	}

	resp := stateResponse{
		ActiveExam:       attempt.State == exam.StatePhaseActive || attempt.State == exam.StateBreakActive,
		State:            attempt.State,
		Subject:          attempt.Subject,
		UserName:         attempt.UserName,
		OrganizationCode: attempt.OrgCode,
		PhaseIndex:       attempt.CurrentIndex,
		PhaseCount:       len(attempt.Phases),
		RemainingSeconds: seq.RemainingSeconds(time.Now()),
		ExamCompleted:    attempt.ExamCompleted,
	}
	if phase, ok := attempt.CurrentPhase(); ok {
		resp.CurrentPhase = phase.String()
	}
	for key := range attempt.Completed {
		resp.CompletedPhases = append(resp.CompletedPhases, key)
	}
	if attempt.ExamCompleted {
		resp.PhaseScores = make(map[string]int, len(attempt.PhaseScores))
		for key, score := range attempt.PhaseScores {
			resp.PhaseScores[key] = score.Percentage
		}
	}
	return resp
}

// Start creates a fresh attempt for the session. An existing active attempt
// blocks a new one unless the unload beacon marked it abandoned.
func (h *ExamHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject and userName are required"})
		return
	}
	if !utils.IsValidUserName(req.UserName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user name"})
		return
	}

	key, err := sessionKey(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
		return
	}

	seq, wasReloaded, err := h.loadAttempt(c, key)
	if err != nil {
		h.log.Error("Failed to load attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load exam state"})
		return
	}

	// A mid-exam reload is abandonment, never resumption.
	if attempt := seq.Attempt(); attempt != nil && wasReloaded && !attempt.ExamCompleted {
		seq.Abandon()
	}

	orgCode, err := utils.NewOrgCode()
	if err != nil {
		h.log.Error("Failed to generate organization code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start exam"})
		return
	}

	if _, err := seq.Init(req.Subject, req.UserName, orgCode); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if err := h.saveAttempt(c, key, seq); err != nil {
		h.log.Error("Failed to persist attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist exam state"})
		return
	}
	c.JSON(http.StatusCreated, h.snapshot(seq))
}

// State returns the current snapshot. This is also where the reload check
// lands on page load: an active attempt whose session saw the unload beacon
// is discarded here.
func (h *ExamHandler) State(c *gin.Context) {
	key, err := sessionKey(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
		return
	}

	seq, wasReloaded, err := h.loadAttempt(c, key)
	if err != nil {
		h.log.Error("Failed to load attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load exam state"})
		return
	}

	if attempt := seq.Attempt(); attempt != nil && wasReloaded && !attempt.ExamCompleted {
		seq.Abandon()
	}

	if err := h.saveAttempt(c, key, seq); err != nil {
		h.log.Error("Failed to persist attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist exam state"})
		return
	}
	c.JSON(http.StatusOK, h.snapshot(seq))
}

// Questions returns the sanitized question set for the active phase only.
func (h *ExamHandler) Questions(c *gin.Context) {
	key, err := sessionKey(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
		return
	}

	seq, _, err := h.loadAttempt(c, key)
	if err != nil {
		h.log.Error("Failed to load attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load exam state"})
		return
	}

	attempt := seq.Attempt()
	if attempt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": exam.ErrNoAttempt.Error()})
		return
	}
	phase, ok := attempt.CurrentPhase()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": exam.ErrPhaseNotActive.Error()})
		return
	}

	questions := h.bank.Resolve(attempt.Subject, phase.Main, phase.Sub)
	sanitized := make([]clientQuestion, 0, len(questions))
	for _, q := range questions {
		sanitized = append(sanitized, clientQuestion{ID: q.ID, Text: q.Text, Options: q.Options})
	}

	if err := h.saveAttempt(c, key, seq); err != nil {
		h.log.Error("Failed to persist attempt", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{
		"phase":     phase.String(),
		"questions": sanitized,
	})
}

// Answer records one answer against the active phase.
func (h *ExamHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phase, questionId and selectedIndex are required"})
		return
	}

	key, err := sessionKey(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
		return
	}

	seq, _, err := h.loadAttempt(c, key)
	if err != nil {
		h.log.Error("Failed to load attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load exam state"})
		return
	}

	if err := seq.SubmitAnswer(exam.ParsePhaseID(req.Phase), req.QuestionID, *req.SelectedIndex); err != nil {
		c.JSON(examErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	if err := h.saveAttempt(c, key, seq); err != nil {
		h.log.Error("Failed to persist attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist exam state"})
		return
	}
	c.JSON(http.StatusOK, h.snapshot(seq))
}

// FinishPhase ends the named phase early. Finishing anything but the active
// phase is rejected and the state is unchanged.
func (h *ExamHandler) FinishPhase(c *gin.Context) {
	var req finishPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phase is required"})
		return
	}

	key, err := sessionKey(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
		return
	}

	seq, _, err := h.loadAttempt(c, key)
	if err != nil {
		h.log.Error("Failed to load attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load exam state"})
		return
	}

	if err := seq.FinalizePhase(exam.ParsePhaseID(req.Phase)); err != nil {
		c.JSON(examErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	if err := h.saveAttempt(c, key, seq); err != nil {
		h.log.Error("Failed to persist attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist exam state"})
		return
	}
	c.JSON(http.StatusOK, h.snapshot(seq))
}

// Leave is the unload beacon. It flags the active attempt so the next page
// load knows the learner really left, as opposed to navigating inside the
// app.
func (h *ExamHandler) Leave(c *gin.Context) {
	key, err := sessionKey(c)
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}
	if err := repository.MarkReloaded(c.Request.Context(), key); err != nil {
		h.log.Warn("Failed to flag attempt on unload", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// Result aggregates and returns the final score for a completed attempt.
// Re-entering the results view reads the previously persisted result; it
// never recomputes or re-appends.
func (h *ExamHandler) Result(c *gin.Context) {
	key, err := sessionKey(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
		return
	}

	seq, _, err := h.loadAttempt(c, key)
	if err != nil {
		h.log.Error("Failed to load attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load exam state"})
		return
	}

	result, err := h.aggregator.Aggregate(c.Request.Context(), seq.Attempt())
	if err != nil {
		c.JSON(examErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := seq.RecordResult(result); err != nil {
		c.JSON(examErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	if err := h.saveAttempt(c, key, seq); err != nil {
		h.log.Error("Failed to persist attempt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist exam state"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// examErrorStatus maps core sentinel errors onto HTTP statuses.
func examErrorStatus(err error) int {
	switch err {
	case exam.ErrNoAttempt:
		return http.StatusNotFound
	case exam.ErrPhaseNotActive, exam.ErrExamActive, exam.ErrExamCompleted, exam.ErrExamNotCompleted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
