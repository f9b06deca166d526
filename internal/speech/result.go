package speech

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TicksPerSecond is the resolution of service media times (100ns ticks).
const TicksPerSecond = 10_000_000

// Status is the recognition outcome reported for a phrase.
type Status string

const (
	StatusSuccess               Status = "Success"
	StatusNoMatch               Status = "NoMatch"
	StatusInitialSilenceTimeout Status = "InitialSilenceTimeout"
	StatusBabbleTimeout         Status = "BabbleTimeout"
	StatusError                 Status = "Error"
	StatusEndOfDictation        Status = "EndOfDictation"
)

// Phrase is one recognized utterance.
type Phrase struct {
	DisplayText string
	// MediaTime is the offset from the start of the audio, in ticks.
	MediaTime int64
	Duration  int64
}

// Seconds returns the whole-second offset of the phrase, rounded down.
func (p Phrase) Seconds() int64 {
	if p.MediaTime <= 0 {
		return 0
	}
	return p.MediaTime / TicksPerSecond
}

// Result is an ordered batch of phrases delivered by the service.
type Result struct {
	Status  Status
	Phrases []Phrase
}

// OK reports whether the service recognized speech.
func (r Result) OK() bool {
	return r.Status == StatusSuccess && len(r.Phrases) > 0
}

type phrasePayload struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
	NBest             []struct {
		Display    string  `json:"Display"`
		Confidence float64 `json:"Confidence"`
	} `json:"NBest"`
}

type hypothesisPayload struct {
	Text     string `json:"Text"`
	Offset   int64  `json:"Offset"`
	Duration int64  `json:"Duration"`
}

// decodePhrase parses a speech.phrase body. Simple responses carry
// DisplayText; detailed responses carry ranked NBest alternatives, which
// become phrases in rank order.
func decodePhrase(body []byte) (Result, error) {
	var payload phrasePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("decode speech.phrase: %w", err)
	}
	result := Result{Status: Status(strings.TrimSpace(payload.RecognitionStatus))}
	if result.Status == "" {
		result.Status = StatusError
	}
	if result.Status != StatusSuccess {
		return result, nil
	}

	if text := strings.TrimSpace(payload.DisplayText); text != "" {
		result.Phrases = append(result.Phrases, Phrase{DisplayText: text, MediaTime: payload.Offset, Duration: payload.Duration})
	}
	for _, alt := range payload.NBest {
		text := strings.TrimSpace(alt.Display)
		if text == "" {
			continue
		}
		result.Phrases = append(result.Phrases, Phrase{DisplayText: text, MediaTime: payload.Offset, Duration: payload.Duration})
	}
	return result, nil
}

func decodeHypothesis(body []byte) (Phrase, error) {
	var payload hypothesisPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Phrase{}, fmt.Errorf("decode speech.hypothesis: %w", err)
	}
	return Phrase{DisplayText: payload.Text, MediaTime: payload.Offset, Duration: payload.Duration}, nil
}
