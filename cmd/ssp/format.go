package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Event types written by the run command.
const (
	EventMatch   = "match"
	EventCapture = "capture"
)

// validFormats lists all valid output formats.
var validFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// validEventTypes lists the event types accepted by --types.
var validEventTypes = map[string]bool{
	EventMatch:   true,
	EventCapture: true,
}

// Event is one line of run output.
type Event struct {
	Type    string `json:"type"`
	Offset  int64  `json:"offset"`
	Node    string `json:"node,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Target  string `json:"target,omitempty"`
	Length  int    `json:"length,omitempty"`
	Data    string `json:"data,omitempty"`

	// Raw holds captured bytes that are not valid UTF-8, base64 encoded in
	// JSON. Data then has U+FFFD in their place.
	Raw []byte `json:"raw,omitempty"`
}

// OutputEvent writes an event in the specified format to the writer.
func OutputEvent(format string, event Event, out io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(event, out)
	case "pretty":
		return OutputPretty(event, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes an event as JSON Lines format.
func OutputJSON(event Event, out io.Writer) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// OutputPretty writes an event in human-readable format.
func OutputPretty(event Event, out io.Writer) error {
	var err error
	switch event.Type {
	case EventMatch:
		_, err = fmt.Fprintf(out, "[%6d] %s: %s -> %s (%d)\n",
			event.Offset, event.Node, quoteIfNeeded(event.Pattern), event.Target, event.Length)
	case EventCapture:
		data := quoteIfNeeded(event.Data)
		if event.Raw != nil {
			data = strconv.Quote(string(event.Raw))
		}
		_, err = fmt.Fprintf(out, "[%6d] * capture %s\n", event.Offset, data)
	default:
		_, err = fmt.Fprintf(out, "[%6d] ? %s\n", event.Offset, event.Type)
	}
	return err
}

// NormalizeEventTypes lower-cases, trims and de-duplicates the --types
// values, rejecting empty and unknown names.
func NormalizeEventTypes(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		t := strings.ToLower(strings.TrimSpace(raw))
		if t == "" {
			return nil, fmt.Errorf("empty event type in list")
		}
		if !validEventTypes[t] {
			return nil, fmt.Errorf("unknown event type: %q (valid: %s, %s)", raw, EventMatch, EventCapture)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// quoteIfNeeded quotes a value if it contains special characters or control characters.
// Returns the value unchanged if no quoting is needed.
func quoteIfNeeded(v string) string {
	if v == "" {
		return `""`
	}

	needsQuote := false
	for _, c := range v {
		if c == ' ' || c == '=' || c == '"' || c == '\\' || c < 0x20 || c == 0x7F {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return v
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range v {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c == 0x7F:
			sb.WriteString(fmt.Sprintf(`\x%02x`, c))
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
