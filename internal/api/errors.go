package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"storefront/internal/model"
)

// messageKeys are the top-level keys the store uses for a single error message.
var messageKeys = []string{"detail", "error", "message"}

// parseError converts a non-2xx store response to a *model.APIError.
// Validation bodies are DRF style: {"field": ["msg", ...], "non_field_errors": [...]}
// or {"detail": "msg"}.
func parseError(statusCode int, body []byte) error {
	detail, fields := decodeErrorBody(body)

	if statusCode >= 400 && statusCode < 500 && mentionsStock(detail, fields) {
		return model.NewConflictError(statusCode, firstNonEmpty(detail, "item is out of stock"))
	}

	switch statusCode {
	case http.StatusBadRequest:
		if len(fields) > 0 {
			return model.NewFieldValidationError(fields)
		}
		return model.NewValidationError("request", firstNonEmpty(detail, "invalid request"))
	case http.StatusUnauthorized:
		return model.NewAuthExpiredError(firstNonEmpty(detail, "authentication required"))
	case http.StatusForbidden:
		return model.NewForbiddenError(firstNonEmpty(detail, "access denied"))
	case http.StatusNotFound:
		return model.NewNotFoundError("resource")
	case http.StatusConflict:
		return model.NewConflictError(statusCode, firstNonEmpty(detail, "request conflicts with current state"))
	case http.StatusTooManyRequests:
		return model.NewRateLimitError()
	default:
		return model.NewServerError(statusCode, detail)
	}
}

func decodeErrorBody(body []byte) (string, map[string][]string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	var detail string
	for _, key := range messageKeys {
		if msg, ok := raw[key]; ok {
			var s string
			if json.Unmarshal(msg, &s) == nil && s != "" {
				detail = s
				break
			}
		}
	}

	fields := make(map[string][]string)
	for key, value := range raw {
		if isMessageKey(key) {
			continue
		}
		if msgs := flattenMessages(value); len(msgs) > 0 {
			fields[key] = msgs
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return detail, fields
}

// flattenMessages accepts "msg", ["msg", ...] and nested objects, which DRF
// emits for nested serializers.
func flattenMessages(value json.RawMessage) []string {
	var s string
	if json.Unmarshal(value, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var list []json.RawMessage
	if json.Unmarshal(value, &list) == nil {
		var out []string
		for _, item := range list {
			out = append(out, flattenMessages(item)...)
		}
		return out
	}

	var nested map[string]json.RawMessage
	if json.Unmarshal(value, &nested) == nil {
		keys := make([]string, 0, len(nested))
		for k := range nested {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out []string
		for _, k := range keys {
			for _, msg := range flattenMessages(nested[k]) {
				out = append(out, fmt.Sprintf("%s: %s", k, msg))
			}
		}
		return out
	}
	return nil
}

func mentionsStock(detail string, fields map[string][]string) bool {
	if strings.Contains(strings.ToLower(detail), "stock") {
		return true
	}
	for _, msgs := range fields {
		for _, msg := range msgs {
			if strings.Contains(strings.ToLower(msg), "stock") {
				return true
			}
		}
	}
	return false
}

func isMessageKey(key string) bool {
	for _, k := range messageKeys {
		if k == key {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func decodeJSON(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(body, out)
}
