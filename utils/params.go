package utils

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aslaburda/aslp_backend/models"
)

// Params extracts typed, sanitised values from submitted form fields.
// The first missing or malformed field is remembered and reported by Err,
// so a handler can read all of its inputs and check once.
type Params struct {
	values url.Values
	err    *models.AppError
}

func NewParams(values url.Values) *Params {
	if values == nil {
		values = url.Values{}
	}
	return &Params{values: values}
}

// Err returns a validation error naming the first offending field, or nil.
func (p *Params) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

// Has reports whether name was submitted at all, even empty.
func (p *Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

func (p *Params) fail(name string) {
	if p.err == nil {
		p.err = models.ErrValidation(name)
	}
}

func (p *Params) raw(name string, required bool) (string, bool) {
	v := p.values.Get(name)
	if strings.TrimSpace(v) == "" {
		if required {
			p.fail(name)
		}
		return "", false
	}
	return v, true
}

// String returns a single-line value: trimmed, HTML escaped, control characters removed.
func (p *Params) String(name string, required bool) string {
	v, ok := p.raw(name, required)
	if !ok {
		return ""
	}
	return SanitizeInput(v)
}

// Secret returns a credential as submitted, trimmed and without escaping.
func (p *Params) Secret(name string, required bool) string {
	v, ok := p.raw(name, required)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Text is String with line breaks preserved.
func (p *Params) Text(name string, required bool) string {
	v, ok := p.raw(name, required)
	if !ok {
		return ""
	}
	return SanitizeTextarea(v)
}

// HTML returns trusted markup with scripts and event handlers removed.
func (p *Params) HTML(name string, required bool) string {
	v, ok := p.raw(name, required)
	if !ok {
		return ""
	}
	return SanitizeHTML(v)
}

// Int returns an integer that must be zero or positive.
func (p *Params) Int(name string, required bool) int64 {
	v, ok := p.raw(name, required)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		p.fail(name)
		return 0
	}
	return n
}

// Float returns a finite number; NaN and infinities are rejected.
func (p *Params) Float(name string, required bool) float64 {
	v, ok := p.raw(name, required)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(name)
		return 0
	}
	return f
}

// URL accepts absolute http(s) URLs only.
func (p *Params) URL(name string, required bool) string {
	v, ok := p.raw(name, required)
	if !ok {
		return ""
	}
	clean, err := SanitizeURL(v)
	if err != nil {
		p.fail(name)
		return ""
	}
	return clean
}

// Bool treats "1", "true", "yes" and "on" as true; anything else is false.
func (p *Params) Bool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(p.values.Get(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// BoolDefault is Bool with a value used when the field was not submitted.
func (p *Params) BoolDefault(name string, fallback bool) bool {
	if !p.Has(name) {
		return fallback
	}
	return p.Bool(name)
}

// JSON returns the submitted document unchanged. It must be valid JSON.
func (p *Params) JSON(name string, required bool) json.RawMessage {
	v, ok := p.raw(name, required)
	if !ok {
		return nil
	}
	if !json.Valid([]byte(v)) {
		p.fail(name)
		return nil
	}
	return json.RawMessage(v)
}

func (p *Params) Email(name string, required bool) string {
	v, ok := p.raw(name, required)
	if !ok {
		return ""
	}
	email, err := SanitizeEmail(v)
	if err != nil {
		p.fail(name)
		return ""
	}
	return email
}

// Slug lowercases and reduces the value to [a-z0-9_-].
func (p *Params) Slug(name string, required bool) string {
	v, ok := p.raw(name, required)
	if !ok {
		return ""
	}
	slug := Slugify(v)
	if slug == "" {
		p.fail(name)
	}
	return slug
}

// Enum requires the value to be one of allowed. An absent optional value yields fallback.
func (p *Params) Enum(name string, required bool, fallback string, allowed ...string) string {
	v, ok := p.raw(name, required)
	if !ok {
		return fallback
	}
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.fail(name)
	return fallback
}

// Strings accepts a JSON array of strings or a comma separated list.
func (p *Params) Strings(name string, required bool) []string {
	v, ok := p.raw(name, required)
	if !ok {
		return nil
	}
	var list []string
	if strings.HasPrefix(strings.TrimSpace(v), "[") {
		if err := json.Unmarshal([]byte(v), &list); err != nil {
			p.fail(name)
			return nil
		}
	} else {
		list = strings.Split(v, ",")
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if clean := SanitizeInput(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// Time accepts RFC 3339 timestamps or YYYY-MM-DD dates.
func (p *Params) Time(name string, required bool) time.Time {
	v, ok := p.raw(name, required)
	if !ok {
		return time.Time{}
	}
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	p.fail(name)
	return time.Time{}
}
