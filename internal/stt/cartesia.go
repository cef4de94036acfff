package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned by the Cartesia client when no key is set.
var ErrMissingAPIKey = errors.New("cartesia api key is not configured")

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// CartesiaOptions configures the Cartesia batch STT client.
type CartesiaOptions struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Model      string
	Language   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type cartesiaClient struct {
	opts   CartesiaOptions
	client *http.Client
}

type cartesiaResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// NewCartesia returns a transcriber backed by the Cartesia /stt REST API.
func NewCartesia(opts CartesiaOptions) Transcriber {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Model == "" {
		opts.Model = "ink-whisper"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &cartesiaClient{opts: opts, client: client}
}

func (c *cartesiaClient) Name() string { return "cartesia" }

func (c *cartesiaClient) Transcribe(ctx context.Context, audio []byte) (Transcript, error) {
	if c.opts.APIKey == "" {
		return Transcript{}, ErrMissingAPIKey
	}
	if len(audio) == 0 {
		return Transcript{}, ErrEmptyAudio
	}

	body, contentType, err := c.encodeForm(audio)
	if err != nil {
		return Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, body)
	if err != nil {
		return Transcript{}, fmt.Errorf("build cartesia request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", c.opts.APIKey)
	if c.opts.APIVersion != "" {
		req.Header.Set("Cartesia-Version", c.opts.APIVersion)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Transcript{}, fmt.Errorf("cartesia returned status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var out cartesiaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transcript{}, fmt.Errorf("decode cartesia response: %w", err)
	}
	return Transcript{Text: out.Text, Confidence: 1}, nil
}

func (c *cartesiaClient) encodeForm(audio []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := "recording.webm"
	if _, err := InspectAudio(audio); err == nil {
		filename = "recording.wav"
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.WriteField("model", c.opts.Model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("language", c.opts.Language); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
