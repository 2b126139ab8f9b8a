package enrich

import (
	"encoding/json"
	"fmt"
)

// Payload carries the workflow's final decision.
type Payload struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Response is the normalized workflow reply. Parse guarantees that a
// Response with Success true always carries a payload with non-empty
// title and author.
type Response struct {
	Success bool            `json:"success"`
	Source  string          `json:"source"`
	Payload *Payload        `json:"payload"`
	Errors  []string        `json:"errors"`
	Raw     json.RawMessage `json:"-"`
}

// ErrorMessage joins the reply's errors, falling back to a default.
func (r Response) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return "enrichment workflow did not return a usable payload"
	}
	message := r.Errors[0]
	for _, extra := range r.Errors[1:] {
		message += "; " + extra
	}
	return message
}

// Failure synthesizes a contract-violation reply.
func Failure(source, message string, raw json.RawMessage) Response {
	return Response{
		Success: false,
		Source:  source,
		Errors:  []string{message},
		Raw:     raw,
	}
}

// Parse validates a raw reply against the workflow contract. A JSON
// array is accepted when its first element is an object. Any violation
// yields a synthesized failure carrying the raw reply; Parse never
// returns an error.
func Parse(raw []byte, source string) Response {
	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return Failure(source, "workflow response is not valid JSON", nil)
	}

	obj, ok := asObject(top)
	if !ok {
		return Failure(source, "workflow response must be a JSON object", json.RawMessage(raw))
	}

	response, violation := validate(obj)
	if violation != "" {
		return Failure(source, violation, json.RawMessage(raw))
	}
	response.Raw = json.RawMessage(raw)
	return response
}

func asObject(top any) (map[string]any, bool) {
	switch v := top.(type) {
	case map[string]any:
		return v, true
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				return first, true
			}
		}
	}
	return nil, false
}

func validate(obj map[string]any) (Response, string) {
	var response Response

	successRaw, ok := obj["success"]
	if !ok {
		return response, "workflow response must include 'success' and 'source'"
	}
	sourceRaw, ok := obj["source"]
	if !ok {
		return response, "workflow response must include 'success' and 'source'"
	}
	success, ok := successRaw.(bool)
	if !ok {
		return response, "'success' must be a boolean"
	}
	source, ok := sourceRaw.(string)
	if !ok {
		return response, "'source' must be a string"
	}
	response.Success = success
	response.Source = source

	payloadRaw, hasPayload := obj["payload"]
	var payload map[string]any
	if hasPayload && payloadRaw != nil {
		payload, ok = payloadRaw.(map[string]any)
		if !ok {
			return response, "'payload' must be an object when provided"
		}
	}
	if success {
		if payload == nil {
			return response, "successful workflow response must include a 'payload' object"
		}
		title, _ := payload["title"].(string)
		author, _ := payload["author"].(string)
		if title == "" || author == "" {
			return response, "successful workflow response must include 'payload.title' and 'payload.author'"
		}
		response.Payload = &Payload{Title: title, Author: author}
	}

	errorsRaw, hasErrors := obj["errors"]
	response.Errors = []string{}
	if hasErrors && errorsRaw != nil {
		list, ok := errorsRaw.([]any)
		if !ok {
			return response, "'errors' must be an array when provided"
		}
		for _, entry := range list {
			response.Errors = append(response.Errors, fmt.Sprint(entry))
		}
	}
	return response, ""
}
