package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/axiometa/academy/pkg/schema"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	StepID  string         `json:"step_id,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// statusFor maps an error code to its HTTP status.
func statusFor(err error) int {
	switch schema.CodeOf(err) {
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeLocked:
		return http.StatusForbidden
	case schema.ErrCodeOutOfRange, schema.ErrCodeValidation, schema.ErrCodeExpression:
		return http.StatusBadRequest
	case schema.ErrCodeInvalidTransition, schema.ErrCodeConflict:
		return http.StatusConflict
	case schema.ErrCodeMalformedContent:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// timeAgo returns a human-readable relative time string.
// Accepts time.Time or *time.Time.
func timeAgo(v any) string {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return ""
		}
		t = *val
	default:
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func add(a, b int) int { return a + b }

// percent formats a 0..100 value without decimals.
func percent(p float64) string {
	return strconv.Itoa(int(p+0.5)) + "%"
}

// statusBadge returns a CSS class name for a lesson or session state.
func statusBadge(status string) string {
	switch status {
	case "completed":
		return "badge-success"
	case "unlocked", "in_progress":
		return "badge-active"
	case "locked":
		return "badge-muted"
	case "abandoned":
		return "badge-warning"
	default:
		return "badge-secondary"
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a request error that has no AcademyError behind it.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: schema.ErrCodeValidation})
}

// writeErr maps err to its status and writes it.
func writeErr(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Code: schema.CodeOf(err)}
	if body.Code == "" {
		body.Code = "INTERNAL"
	}
	if ae := asAcademy(err); ae != nil {
		body.Error = ae.Message
		body.StepID = ae.StepID
		body.Details = ae.Details
	}
	writeJSON(w, statusFor(err), body)
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func asAcademy(err error) *schema.AcademyError {
	var ae *schema.AcademyError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
