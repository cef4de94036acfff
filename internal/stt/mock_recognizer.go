package stt

import "context"

// demoTranscript mirrors the richest scenario of the mobile client's demo data.
const demoTranscript = "cat dog bird fish elephant lion tiger bear wolf deer rabbit squirrel mouse rat hamster guinea pig"

type mockRecognizer struct {
	text string
}

// NewMock returns a transcriber that always answers with text, or a fixed demo
// transcript when text is empty.
func NewMock(text string) Transcriber {
	if text == "" {
		text = demoTranscript
	}
	return &mockRecognizer{text: text}
}

func (m *mockRecognizer) Name() string { return "mock" }

func (m *mockRecognizer) Transcribe(ctx context.Context, audio []byte) (Transcript, error) {
	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}
	if len(audio) == 0 {
		return Transcript{}, ErrEmptyAudio
	}
	return Transcript{Text: m.text, Confidence: 1}, nil
}
