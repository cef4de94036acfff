package protocol

import (
	"time"

	"github.com/loqalabs/loqa-fluency/internal/fluency"
)

// Transcript represents STT output broadcast on the bus by the voice pipeline.
type Transcript struct {
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Partial    bool      `json:"partial"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence,omitempty"`
}

// AnalyzeRequest is the body of POST /analyze and of fluency.analyze requests.
type AnalyzeRequest struct {
	Text *string `json:"text"`
}

// AnalyzeResponse is the scoring contract shared by HTTP and the bus.
type AnalyzeResponse struct {
	AnimalCount      int    `json:"animal_count"`
	Repetitions      int    `json:"repetitions"`
	MemoryScore      int    `json:"memory_score"`
	BrainHealthScore int    `json:"brain_health_score"`
	Report           string `json:"report"`
}

// TranscriptionResponse is the body returned by POST /transcribe.
type TranscriptionResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback"`
}

// AssessmentResponse combines transcription and scoring for POST /assess.
type AssessmentResponse struct {
	Transcription TranscriptionResponse `json:"transcription"`
	Analysis      AnalyzeResponse       `json:"analysis"`
}

// FluencyResult is published after a final transcript has been scored.
type FluencyResult struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Animals   []string  `json:"animals"`
	Band      string    `json:"band"`
	Timestamp time.Time `json:"timestamp"`
	AnalyzeResponse
}

// ErrorResponse carries a client-facing error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewAnalyzeResponse renders r and its report into the wire shape.
func NewAnalyzeResponse(r fluency.Result) AnalyzeResponse {
	return AnalyzeResponse{
		AnimalCount:      r.AnimalCount,
		Repetitions:      r.Repetitions,
		MemoryScore:      r.MemoryScore,
		BrainHealthScore: r.BrainHealthScore,
		Report:           fluency.Report(r),
	}
}

const (
	SubjectTranscriptFinal = "stt.text.final"
	SubjectAnalyze         = "fluency.analyze"
	SubjectResult          = "fluency.result"
)
