package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampBareInt(t *testing.T) {
	got, err := ParseTimestamp(json.RawMessage(`1700000000000000000`))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000000000), got)
}

func TestParseTimestampStringNanos(t *testing.T) {
	got, err := ParseTimestamp(json.RawMessage(`"1700000000000000000"`))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000000000), got)
}

func TestParseTimestampRFC3339(t *testing.T) {
	got, err := ParseTimestamp(json.RawMessage(`"2024-03-15T12:30:00Z"`))
	require.NoError(t, err)
	want := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, want, got)
}

func TestParseTimestampPlainDate(t *testing.T) {
	got, err := ParseTimestamp(json.RawMessage(`"2024-03-15"`))
	require.NoError(t, err)
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, want, got)
}

func TestParseTimestampShortStringNotMisreadAsInt(t *testing.T) {
	// A 4-character string like "2024" is a year, not nanoseconds; it
	// must fall through to date parsing and fail (not silently parse as
	// the integer 2024).
	_, err := ParseTimestamp(json.RawMessage(`"2024"`))
	assert.Error(t, err)
}

func TestParseTimestampInvalid(t *testing.T) {
	_, err := ParseTimestamp(json.RawMessage(`"not a timestamp"`))
	assert.Error(t, err)
}

func TestParseTimestampWrongJSONType(t *testing.T) {
	_, err := ParseTimestamp(json.RawMessage(`true`))
	assert.Error(t, err)
}

func TestResolveLangExplicit(t *testing.T) {
	req := &Request{Lang: "JavaScript"}
	lang, err := ResolveLang(req)
	require.NoError(t, err)
	assert.Equal(t, "JavaScript", lang)
}

func TestResolveLangInferredFromPath(t *testing.T) {
	req := &Request{Source: Source{Path: "query.js"}}
	lang, err := ResolveLang(req)
	require.NoError(t, err)
	assert.Equal(t, "JavaScript", lang)
}

func TestResolveLangUnknownExtension(t *testing.T) {
	req := &Request{Source: Source{Path: "query.rb"}}
	_, err := ResolveLang(req)
	assert.Error(t, err)
}

func TestResolveLangNoPathNoLang(t *testing.T) {
	req := &Request{}
	_, err := ResolveLang(req)
	assert.Error(t, err)
}
