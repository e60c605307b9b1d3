package arcgis

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sdpublish/internal/services"
)

// APIError is the JSON error envelope ArcGIS returns with an HTTP 200.
type APIError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	if e.Code != 0 {
		return fmt.Sprintf("arcgis error %d: %s", e.Code, msg)
	}
	return "arcgis error: " + msg
}

// Is reports token and permission failures as services.ErrAuthentication.
func (e *APIError) Is(target error) bool {
	if target != services.ErrAuthentication {
		return false
	}
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden, 498, 499:
		return true
	default:
		return false
	}
}

// IsAuthError reports whether err was caused by a rejected or missing token.
func IsAuthError(err error) bool {
	return errors.Is(err, services.ErrAuthentication)
}

// envelope captures the failure shapes ArcGIS uses across endpoints: a nested
// error object, or a status/messages pair on admin operations. Job status
// documents reuse the messages key for an array of objects, so it is only
// decoded once status says the call failed.
type envelope struct {
	Error    *APIError       `json:"error"`
	Status   string          `json:"status"`
	Messages json.RawMessage `json:"messages"`
}

func (e envelope) err() error {
	if e.Error != nil {
		return e.Error
	}
	if strings.EqualFold(e.Status, "error") {
		return &APIError{Message: strings.Join(messageTexts(e.Messages), "; ")}
	}
	return nil
}

// messageTexts reads a messages array holding plain strings or
// {description} objects. Anything else yields nil.
func messageTexts(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	texts := make([]string, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err != nil {
			var msg JobMessage
			if json.Unmarshal(item, &msg) != nil {
				continue
			}
			text = msg.Description
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}
