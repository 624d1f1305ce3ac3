package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/mohammed-shakir/geojson-featureserver/internal/featureserver"
)

var callbackRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// httpTransport writes the dispatcher's single response. A valid callback
// parameter wraps the body as JSONP; f=pjson indents it.
type httpTransport struct {
	w        http.ResponseWriter
	callback string
	pretty   bool
}

func newTransport(w http.ResponseWriter, req *featureserver.Request) *httpTransport {
	t := &httpTransport{w: w, pretty: strings.EqualFold(req.Query["f"], "pjson")}
	if cb := strings.TrimSpace(req.Query["callback"]); callbackRe.MatchString(cb) {
		t.callback = cb
	}
	return t
}

func (t *httpTransport) Deliver(_ *featureserver.Request, status int, body any) {
	if t.callback == "" {
		writeJSON(t.w, status, body, t.pretty)
		return
	}
	b, err := encode(body, t.pretty)
	if err != nil {
		writeJSON(t.w, http.StatusInternalServerError, featureserver.ErrorBody{Error: "Failed to encode response"}, false)
		return
	}
	t.w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	t.w.WriteHeader(status)
	_, _ = t.w.Write([]byte(t.callback + "("))
	_, _ = t.w.Write(b)
	_, _ = t.w.Write([]byte(");"))
}

func writeJSON(w http.ResponseWriter, status int, body any, pretty bool) {
	b, err := encode(body, pretty)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"Failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func encode(body any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
