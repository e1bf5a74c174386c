// Package speech defines the audio edges of a voice session. The engine
// itself is text-in text-out; transcription and synthesis are pluggable
// adapters so the same personas run over a console, a softphone bridge or a
// hosted speech API.
package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// VoiceProfile names a synthesis voice and its delivery parameters. Personas
// reference profiles by name; the synthesizer maps them to provider voices.
type VoiceProfile struct {
	Name     string  `json:"name" yaml:"name"`
	Provider string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Language string  `json:"language,omitempty" yaml:"language,omitempty"`
	Speed    float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
}

// Transcriber turns one utterance of audio input into text.
type Transcriber interface {
	Transcribe(ctx context.Context) (string, error)
}

// Synthesizer speaks one agent reply using the given voice profile name.
type Synthesizer interface {
	Speak(ctx context.Context, voice, text string) error
}

// ConsoleTranscriber reads utterances line by line, one per turn.
type ConsoleTranscriber struct {
	reader *bufio.Reader
}

// NewConsoleTranscriber wraps a reader, typically os.Stdin.
func NewConsoleTranscriber(r io.Reader) *ConsoleTranscriber {
	return &ConsoleTranscriber{reader: bufio.NewReader(r)}
}

func (t *ConsoleTranscriber) Transcribe(ctx context.Context) (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ConsoleSynthesizer prints replies, prefixed with the voice name so voice
// switches are visible during local runs.
type ConsoleSynthesizer struct {
	writer io.Writer
}

// NewConsoleSynthesizer wraps a writer, typically os.Stdout.
func NewConsoleSynthesizer(w io.Writer) *ConsoleSynthesizer {
	return &ConsoleSynthesizer{writer: w}
}

func (s *ConsoleSynthesizer) Speak(ctx context.Context, voice, text string) error {
	if voice == "" {
		_, err := fmt.Fprintf(s.writer, "agent: %s\n", text)
		return err
	}
	_, err := fmt.Fprintf(s.writer, "agent[%s]: %s\n", voice, text)
	return err
}
