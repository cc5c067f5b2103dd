package query

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// niceDateFormat is the fallback plain-date layout accepted for from/to.
const niceDateFormat = "2006-01-02"

// Source is the user script to run, with path used only for language
// inference and error messages (it is not read from disk).
type Source struct {
	Text string `json:"text"`
	Path string `json:"path"`
}

// Request is the decoded body of a POST / query.
type Request struct {
	Table  string          `json:"table"`
	From   json.RawMessage `json:"from"`
	To     json.RawMessage `json:"to"`
	Lang   string          `json:"lang"`
	Source Source          `json:"source"`
}

// ParseTimestamp accepts a bare JSON integer (nanoseconds since epoch) or a
// JSON string, tried in order as: an integer literal (only when longer
// than 4 characters, to avoid misreading short dates/years), RFC-3339, or
// a plain YYYY-MM-DD date at midnight UTC.
func ParseTimestamp(raw json.RawMessage) (int64, error) {
	var asInt int64
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return asInt, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("timestamp must be an integer or a string, got %s", raw)
	}

	if len(s) > 4 {
		if nanos, err := strconv.ParseInt(s, 10, 64); err == nil {
			return nanos, nil
		}
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixNano(), nil
	}

	if t, err := time.Parse(niceDateFormat, s); err == nil {
		return t.UTC().UnixNano(), nil
	}

	return 0, fmt.Errorf("could not parse %q as ns, RFC3339, or %s", s, niceDateFormat)
}

// langExtensions maps a source path's extension to its inferred language.
var langExtensions = map[string]string{
	".js": "JavaScript",
	".jl": "Julia",
	".py": "Python",
}

// ResolveLang returns req.Lang if set, else infers it from Source.Path's
// extension.
func ResolveLang(req *Request) (string, error) {
	if req.Lang != "" {
		return req.Lang, nil
	}
	ext := filepath.Ext(req.Source.Path)
	lang, ok := langExtensions[ext]
	if !ok {
		return "", fmt.Errorf("could not infer language from path %q", req.Source.Path)
	}
	return lang, nil
}
