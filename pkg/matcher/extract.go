package matcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"eolmatch/pkg/agent/toolloop"
)

var (
	// ErrMalformedAnswer is returned when the answer payload is not valid JSON.
	ErrMalformedAnswer = fmt.Errorf("%w: answer is not valid JSON", toolloop.ErrInvalidResult)

	// ErrNotArray is returned when the answer parses but its top level is not an array.
	ErrNotArray = fmt.Errorf("%w: answer is not a JSON array", toolloop.ErrInvalidResult)

	// ErrMissingField is returned when a decoded answer lacks a required field.
	ErrMissingField = fmt.Errorf("%w: answer is missing a required field", toolloop.ErrInvalidResult)

	// ErrNotObject is returned when a single-item answer is not a JSON object.
	ErrNotObject = fmt.Errorf("%w: answer is not a JSON object", toolloop.ErrInvalidResult)
)

const fence = "```"

// Payload locates the structured part of a model answer: the first ```json
// block, else the first ``` block, else the whole text. An unclosed fence
// extends to the end of the text.
func Payload(text string) string {
	if i := strings.Index(text, fence+"json"); i >= 0 {
		return fencedBody(text[i+len(fence)+len("json"):])
	}
	if i := strings.Index(text, fence); i >= 0 {
		body := text[i+len(fence):]
		// Skip a language tag such as ```JSON or ```javascript.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			tag := strings.TrimSpace(body[:nl])
			if tag != "" && !strings.ContainsAny(tag, "[{\"") {
				body = body[nl+1:]
			}
		}
		return fencedBody(body)
	}
	return strings.TrimSpace(text)
}

func fencedBody(s string) string {
	if end := strings.Index(s, fence); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// ExtractArray returns the elements of the JSON array carried by text, verbatim.
func ExtractArray(text string) ([]json.RawMessage, error) {
	payload := Payload(text)
	if !json.Valid([]byte(payload)) {
		return nil, ErrMalformedAnswer
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, ErrNotArray
	}
	if items == nil {
		// "null" decodes into a nil slice without error.
		return nil, ErrNotArray
	}
	return items, nil
}

// ExtractObject returns the JSON object carried by text.
func ExtractObject(text string) (json.RawMessage, error) {
	payload := strings.TrimSpace(Payload(text))
	if !json.Valid([]byte(payload)) {
		return nil, ErrMalformedAnswer
	}
	if !strings.HasPrefix(payload, "{") {
		return nil, ErrNotObject
	}
	return json.RawMessage(payload), nil
}
