package assessment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/loqalabs/loqa-fluency/internal/bus"
	"github.com/loqalabs/loqa-fluency/internal/config"
	"github.com/loqalabs/loqa-fluency/internal/fluency"
	"github.com/loqalabs/loqa-fluency/internal/natsserver"
	"github.com/loqalabs/loqa-fluency/internal/protocol"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startService(t *testing.T, scoreTranscripts bool) (*Service, *bus.Client) {
	t.Helper()
	log := newLogger()

	cfg := config.Default().Bus
	cfg.Enabled = true
	cfg.Embedded = true
	cfg.Port = -1
	cfg.ScoreTranscripts = scoreTranscripts

	srv, err := natsserver.Start(cfg, log)
	if err != nil {
		t.Fatalf("start embedded nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	cfg.Servers = []string{srv.ClientURL()}
	client, err := bus.Connect(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	svc := NewService(cfg, client, fluency.New(nil, fluency.DefaultOptions()), nil, log)
	if err := svc.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, client
}

// request sends req on subject and decodes the reply into resp.
func request(t *testing.T, ctx context.Context, client *bus.Client, subject string, req, resp any) {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	msg, err := client.Conn().RequestWithContext(ctx, subject, data)
	if err != nil {
		t.Fatalf("request %s: %v", subject, err)
	}
	if err := json.Unmarshal(msg.Data, resp); err != nil {
		t.Fatalf("decode reply %q: %v", msg.Data, err)
	}
}

func TestAnalyzeRequestReply(t *testing.T) {
	svc, client := startService(t, false)
	if !svc.Healthy() {
		t.Fatal("expected healthy service after start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	text := "lion lion tiger"
	var resp protocol.AnalyzeResponse
	request(t, ctx, client, protocol.SubjectAnalyze, protocol.AnalyzeRequest{Text: &text}, &resp)
	if resp.AnimalCount != 2 || resp.Repetitions != 1 || resp.MemoryScore != 13 || resp.BrainHealthScore != 8 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Report == "" {
		t.Fatal("expected report in reply")
	}
}

func TestAnalyzeRequestMissingText(t *testing.T) {
	_, client := startService(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var resp protocol.ErrorResponse
	request(t, ctx, client, protocol.SubjectAnalyze, map[string]string{}, &resp)
	if resp.Error == "" {
		t.Fatal("expected error reply for missing text")
	}
}

func TestFinalTranscriptPublishesResult(t *testing.T) {
	_, client := startService(t, true)

	results, err := client.Conn().SubscribeSync(protocol.SubjectResult)
	if err != nil {
		t.Fatalf("subscribe results: %v", err)
	}
	if err := client.Conn().Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	partial := protocol.Transcript{SessionID: "s1", Text: "cat", Partial: true}
	if err := client.PublishJSON(protocol.SubjectTranscriptFinal, partial); err != nil {
		t.Fatalf("publish partial: %v", err)
	}
	final := protocol.Transcript{SessionID: "s1", Text: "cat dog guinea pig", Timestamp: time.Now()}
	if err := client.PublishJSON(protocol.SubjectTranscriptFinal, final); err != nil {
		t.Fatalf("publish final: %v", err)
	}

	msg, err := results.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("await result: %v", err)
	}
	var got protocol.FluencyResult
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.SessionID != "s1" || got.AnimalCount != 3 {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(got.Animals) != 3 || got.Animals[2] != "guinea pig" {
		t.Fatalf("unexpected animals %v", got.Animals)
	}
	if got.Band != string(fluency.BandConcerning) {
		t.Fatalf("unexpected band %q", got.Band)
	}

	if _, err := results.NextMsg(200 * time.Millisecond); err == nil {
		t.Fatal("partial transcripts must not be scored")
	}
}
