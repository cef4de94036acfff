package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loqalabs/loqa-fluency/internal/fluency"
	"github.com/loqalabs/loqa-fluency/internal/protocol"
	"github.com/urfave/cli/v3"
)

const (
	flagJSON       = "json"
	flagVocabulary = "vocabulary"
	flagTarget     = "target"
	flagPenalty    = "penalty"
	flagFuzzy      = "fuzzy"
	flagServer     = "server"
	flagTimeout    = "timeout"
)

// newApp builds the command tree. Flags are created per call because cli
// flags hold parsed state.
func newApp(in io.Reader, out io.Writer) *cli.Command {
	jsonFlag := &cli.BoolFlag{
		Name:  flagJSON,
		Usage: "Print the raw JSON result instead of the report",
	}
	vocabularyFlag := &cli.StringFlag{
		Name:  flagVocabulary,
		Usage: "Path to a YAML animal vocabulary (optional, defaults to the built-in list)",
	}

	return &cli.Command{
		Name:    "fluencyctl",
		Usage:   "Score animal naming transcripts from the command line",
		Version: version,
		Reader:  in,
		Writer:  out,
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Score a transcript given as arguments or on stdin",
				ArgsUsage: "[transcript...]",
				Flags: []cli.Flag{
					jsonFlag,
					vocabularyFlag,
					&cli.IntFlag{
						Name:  flagTarget,
						Usage: "Distinct animals needed for a full memory score",
						Value: fluency.DefaultTargetAnimals,
					},
					&cli.IntFlag{
						Name:  flagPenalty,
						Usage: "Points subtracted per repeated animal",
						Value: fluency.DefaultRepetitionPenalty,
					},
					&cli.BoolFlag{
						Name:  flagFuzzy,
						Usage: "Correct near-miss spellings to the closest animal",
					},
				},
				Action: runAnalyze,
			},
			{
				Name:      "assess",
				Usage:     "Upload a recording to fluencyd and print the assessment",
				ArgsUsage: "<audio-file>",
				Flags: []cli.Flag{
					jsonFlag,
					&cli.StringFlag{
						Name:    flagServer,
						Usage:   "Base URL of a running fluencyd",
						Value:   "http://localhost:8000",
						Sources: cli.EnvVars("FLUENCY_SERVER"),
					},
					&cli.DurationFlag{
						Name:  flagTimeout,
						Usage: "HTTP timeout for server requests",
						Value: 60 * time.Second,
					},
				},
				Action: runAssess,
			},
			{
				Name:   "vocabulary",
				Usage:  "List the animals the scorer recognizes",
				Flags:  []cli.Flag{vocabularyFlag},
				Action: runVocabulary,
			},
		},
	}
}

func runAnalyze(_ context.Context, cmd *cli.Command) error {
	vocab, err := loadVocabulary(cmd.String(flagVocabulary))
	if err != nil {
		return err
	}

	text := strings.Join(cmd.Args().Slice(), " ")
	if text == "" {
		data, err := io.ReadAll(cmd.Root().Reader)
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
		text = string(data)
	}

	scorer := fluency.New(vocab, fluency.Options{
		TargetAnimals:     cmd.Int(flagTarget),
		RepetitionPenalty: cmd.Int(flagPenalty),
		FuzzyMatch:        cmd.Bool(flagFuzzy),
	})
	result := scorer.Analyze(text)

	out := cmd.Root().Writer
	if cmd.Bool(flagJSON) {
		return printJSON(out, result)
	}
	_, err = fmt.Fprintln(out, fluency.Report(result))
	return err
}

func runAssess(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("assess expects exactly one audio file")
	}
	path := cmd.Args().First()
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	url := strings.TrimRight(cmd.String(flagServer), "/") + "/assess"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	client := &http.Client{Timeout: cmd.Duration(flagTimeout)}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr protocol.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("server returned %s: %s", resp.Status, apiErr.Error)
	}

	var assessment protocol.AssessmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return fmt.Errorf("decode assessment: %w", err)
	}

	out := cmd.Root().Writer
	if cmd.Bool(flagJSON) {
		return printJSON(out, assessment)
	}
	if assessment.Transcription.Fallback {
		fmt.Fprintln(out, "Transcription unavailable, scored the demo transcript instead.")
	}
	fmt.Fprintf(out, "Transcript: %s\n\n", assessment.Transcription.Text)
	_, err = fmt.Fprintln(out, assessment.Analysis.Report)
	return err
}

func runVocabulary(_ context.Context, cmd *cli.Command) error {
	vocab, err := loadVocabulary(cmd.String(flagVocabulary))
	if err != nil {
		return err
	}
	scorer := fluency.New(vocab, fluency.DefaultOptions())
	out := cmd.Root().Writer
	for _, name := range scorer.Vocabulary().Names() {
		if _, err := fmt.Fprintln(out, name); err != nil {
			return err
		}
	}
	return nil
}

func loadVocabulary(path string) (*fluency.Vocabulary, error) {
	if path == "" {
		return fluency.DefaultVocabulary(), nil
	}
	return fluency.LoadVocabulary(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
