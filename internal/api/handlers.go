package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/loqalabs/loqa-fluency/internal/protocol"
	"github.com/loqalabs/loqa-fluency/internal/stt"
)

const (
	uploadField = "file"
	source      = "http"
	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to temp files.
	multipartMemory = 8 << 20
)

var errMissingFile = errors.New("audio file is required in form field \"file\"")

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Brain Health API is running",
		"version": s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req protocol.AnalyzeRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, s.analyze(r.Context(), *req.Text))
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.transcribe(r.Context(), audio))
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	audio, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	transcription := s.transcribe(r.Context(), audio)
	writeJSON(w, http.StatusOK, protocol.AssessmentResponse{
		Transcription: transcription,
		Analysis:      s.analyze(r.Context(), transcription.Text),
	})
}

func (s *Server) analyze(ctx context.Context, text string) protocol.AnalyzeResponse {
	result := s.scorer.Analyze(text)
	s.metrics.RecordAnalysis(ctx, source, result)
	return protocol.NewAnalyzeResponse(result)
}

// transcribe never fails: provider errors degrade to the fallback transcript.
func (s *Server) transcribe(ctx context.Context, audio []byte) protocol.TranscriptionResponse {
	ctx, span := s.tracer.Start(ctx, "stt.transcribe")
	defer span.End()

	if info, err := stt.InspectAudio(audio); err == nil {
		s.log.Debug("received wav upload",
			slog.Int("sample_rate", info.SampleRate),
			slog.Int("channels", info.Channels),
			slog.Duration("duration", info.Duration))
	}

	backend := "none"
	if s.transcriber != nil {
		backend = s.transcriber.Name()
	}
	start := time.Now()
	transcript, fallback := stt.Resolve(ctx, s.transcriber, audio, s.log)
	s.metrics.RecordTranscription(ctx, backend, fallback, time.Since(start).Seconds())

	return protocol.TranscriptionResponse{
		Text:       transcript.Text,
		Confidence: transcript.Confidence,
		Fallback:   fallback,
	}
}

// readUpload extracts the audio file from a multipart request. On failure it
// writes the error response and returns false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "expected multipart form upload")
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, errMissingFile.Error())
		return nil, false
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.log.Error("failed to read upload", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return nil, false
	}
	return audio, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, protocol.ErrorResponse{Error: msg})
}
