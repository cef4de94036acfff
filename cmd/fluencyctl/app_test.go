package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-fluency/internal/api"
	"github.com/loqalabs/loqa-fluency/internal/fluency"
	"github.com/loqalabs/loqa-fluency/internal/protocol"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out)
	if err := app.Run(context.Background(), append([]string{"fluencyctl"}, args...)); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return out.String()
}

func TestAnalyzeArgs(t *testing.T) {
	out := run(t, "", "analyze", "lion", "lion", "tiger")
	if !strings.Contains(out, "Memory score:       13 / 100") || !strings.Contains(out, "Brain health score: 8 / 100") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestAnalyzeStdinJSON(t *testing.T) {
	out := run(t, "guinea pig, cat, CAT", "analyze", "--json")
	var got fluency.Result
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.AnimalCount != 2 || got.Repetitions != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestAnalyzeCustomTarget(t *testing.T) {
	out := run(t, "", "analyze", "--json", "--target", "2", "--penalty", "0", "cat", "dog", "cat")
	var got fluency.Result
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MemoryScore != 100 || got.BrainHealthScore != 100 {
		t.Fatalf("unexpected scores %+v", got)
	}
}

func TestVocabularyCommand(t *testing.T) {
	out := run(t, "", "vocabulary")
	names := strings.Split(strings.TrimSpace(out), "\n")
	if len(names) != fluency.DefaultVocabulary().Len() {
		t.Fatalf("expected %d names, got %d", fluency.DefaultVocabulary().Len(), len(names))
	}

	path := filepath.Join(t.TempDir(), "animals.yaml")
	if err := os.WriteFile(path, []byte("animals: [zebra, owl]\n"), 0o644); err != nil {
		t.Fatalf("write vocabulary: %v", err)
	}
	if out := run(t, "", "vocabulary", "--vocabulary", path); out != "owl\nzebra\n" {
		t.Fatalf("unexpected custom vocabulary listing %q", out)
	}
}

func TestAssessCommand(t *testing.T) {
	srv := httptest.NewServer(api.NewServer(api.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).Handler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "recording.webm")
	if err := os.WriteFile(path, []byte("webm-audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	out := run(t, "", "assess", "--server", srv.URL, "--json", path)
	var got protocol.AssessmentResponse
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !got.Transcription.Fallback || got.Analysis.AnimalCount != 11 {
		t.Fatalf("unexpected assessment %+v", got)
	}

	text := run(t, "", "assess", "--server", srv.URL, path)
	if !strings.Contains(text, "demo transcript") || !strings.Contains(text, "Unique animals:") {
		t.Fatalf("unexpected text output:\n%s", text)
	}
}

func TestAssessRequiresFile(t *testing.T) {
	app := newApp(strings.NewReader(""), io.Discard)
	if err := app.Run(context.Background(), []string{"fluencyctl", "assess"}); err == nil {
		t.Fatal("expected error without audio file")
	}
}
