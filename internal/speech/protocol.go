package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Message paths exchanged with the service.
const (
	PathSpeechConfig     = "speech.config"
	PathAudio            = "audio"
	PathTelemetry        = "telemetry"
	PathTurnStart        = "turn.start"
	PathTurnEnd          = "turn.end"
	PathSpeechStartDet   = "speech.startDetected"
	PathSpeechEndDet     = "speech.endDetected"
	PathSpeechHypothesis = "speech.hypothesis"
	PathSpeechPhrase     = "speech.phrase"
)

const (
	headerPath        = "Path"
	headerRequestID   = "X-RequestId"
	headerTimestamp   = "X-Timestamp"
	headerContentType = "Content-Type"
	headerSeparator   = "\r\n"
	bodySeparator     = "\r\n\r\n"
	timestampLayout   = "2006-01-02T15:04:05.000Z"
	audioContentType  = "audio/x-wav"
	jsonContentType   = "application/json; charset=utf-8"
	maxHeaderBytes    = 1<<16 - 1
)

// Message is a decoded protocol frame.
type Message struct {
	Headers map[string]string
	Body    []byte
}

// Path returns the message path header.
func (m Message) Path() string {
	return m.header(headerPath)
}

// RequestID returns the X-RequestId header.
func (m Message) RequestID() string {
	return m.header(headerRequestID)
}

func (m Message) header(name string) string {
	for key, value := range m.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

type frameHeaders struct {
	path        string
	requestID   string
	contentType string
	timestamp   time.Time
}

func (h frameHeaders) render() string {
	var b strings.Builder
	writeHeader(&b, headerPath, h.path)
	writeHeader(&b, headerRequestID, h.requestID)
	writeHeader(&b, headerTimestamp, h.timestamp.UTC().Format(timestampLayout))
	if h.contentType != "" {
		writeHeader(&b, headerContentType, h.contentType)
	}
	return b.String()
}

func writeHeader(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString(headerSeparator)
}

// encodeText renders a text frame: header lines, a blank line, then the body.
func encodeText(h frameHeaders, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(h.render())
	buf.WriteString(headerSeparator)
	buf.Write(body)
	return buf.Bytes()
}

// encodeAudio renders a binary frame: a two byte big-endian header length,
// the header lines, then the audio bytes. An empty chunk marks end of audio.
func encodeAudio(h frameHeaders, chunk []byte) ([]byte, error) {
	headers := h.render()
	if len(headers) > maxHeaderBytes {
		return nil, fmt.Errorf("audio frame headers too large: %d bytes", len(headers))
	}
	buf := make([]byte, 2, 2+len(headers)+len(chunk))
	binary.BigEndian.PutUint16(buf, uint16(len(headers)))
	buf = append(buf, headers...)
	buf = append(buf, chunk...)
	return buf, nil
}

// decodeText parses a text frame received from the service.
func decodeText(data []byte) (Message, error) {
	head, body, found := bytes.Cut(data, []byte(bodySeparator))
	if !found {
		return Message{}, errors.New("text frame has no header terminator")
	}
	headers, err := parseHeaders(string(head))
	if err != nil {
		return Message{}, err
	}
	return Message{Headers: headers, Body: body}, nil
}

// decodeBinary parses a binary frame received from the service.
func decodeBinary(data []byte) (Message, error) {
	if len(data) < 2 {
		return Message{}, errors.New("binary frame shorter than its length prefix")
	}
	size := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+size {
		return Message{}, fmt.Errorf("binary frame header length %d exceeds frame", size)
	}
	headers, err := parseHeaders(strings.TrimRight(string(data[2:2+size]), headerSeparator))
	if err != nil {
		return Message{}, err
	}
	return Message{Headers: headers, Body: data[2+size:]}, nil
}

func parseHeaders(block string) (map[string]string, error) {
	headers := make(map[string]string)
	for line := range strings.SplitSeq(block, headerSeparator) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if len(headers) == 0 {
		return nil, errors.New("frame has no headers")
	}
	return headers, nil
}

// headerNames lists header names in a stable order, for logging.
func (m Message) headerNames() []string {
	names := make([]string, 0, len(m.Headers))
	for name := range m.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
