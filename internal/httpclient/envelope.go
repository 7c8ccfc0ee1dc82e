package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"arenacli/internal/apierror"
)

var emptyObject = json.RawMessage(`{}`)

// decodeSuccess normalizes a 2xx body to the payload callers decode into.
// The backend sends either {"data": T, ...} or a bare T; both come out as T.
// Empty bodies become {}; anything else that is not JSON is an error, since
// a proxy or captive portal page must not pass for an empty payload.
func decodeSuccess(status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return emptyObject, nil
	}
	if !json.Valid(trimmed) {
		return nil, apierror.New(apierror.UnknownError, status,
			fmt.Sprintf("HTTP %d: response body is not JSON", status), nil)
	}

	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err == nil {
			if data, ok := envelope["data"]; ok {
				return data, nil
			}
		}
	}
	return json.RawMessage(trimmed), nil
}

// errorEnvelope is the backend's failure shape:
// {"success": false, "message": "...", "errorCode": "...", "errors": {...}}.
type errorEnvelope struct {
	Success   *bool           `json:"success"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorCode"`
	Errors    json.RawMessage `json:"errors"`
}

// decodeError builds the APIError for a non-2xx response.
func decodeError(resp *http.Response, body []byte) *apierror.APIError {
	if isJSON(resp.Header.Get("Content-Type")) {
		var env errorEnvelope
		if err := json.Unmarshal(body, &env); err == nil {
			msg := env.Message
			if msg == "" {
				msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, statusText(resp))
			}
			return apierror.New(apierror.Code(env.ErrorCode), resp.StatusCode, msg, decodeFieldErrors(env.Errors))
		}
	}
	return apierror.FromStatus(resp.StatusCode, statusText(resp))
}

// decodeFieldErrors accepts {"field": "msg"} and {"field": ["msg", ...]}.
func decodeFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}
	var lists map[string][]string
	if err := json.Unmarshal(raw, &lists); err == nil {
		out := make(map[string]string, len(lists))
		for k, v := range lists {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		return out
	}
	return nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// statusText strips the numeric prefix from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	prefix := fmt.Sprintf("%d ", resp.StatusCode)
	if text, ok := strings.CutPrefix(resp.Status, prefix); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
