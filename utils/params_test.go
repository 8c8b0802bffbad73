package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslaburda/aslp_backend/models"
)

func TestParams_FirstErrorWins(t *testing.T) {
	p := NewParams(url.Values{"id": {"abc"}})
	assert.Equal(t, int64(0), p.Int("id", true))
	p.String("app_name", true)

	err := p.Err()
	require.Error(t, err)
	appErr := models.AsAppError(err)
	assert.Equal(t, models.KindValidation, appErr.Kind)
	assert.Equal(t, "id", appErr.Message)
}

func TestParams_OptionalMissing(t *testing.T) {
	p := NewParams(nil)
	assert.Equal(t, "", p.String("description", false))
	assert.Equal(t, int64(0), p.Int("plan_id", false))
	assert.Nil(t, p.JSON("app_config", false))
	assert.NoError(t, p.Err())
}

func TestParams_Values(t *testing.T) {
	p := NewParams(url.Values{
		"name":     {"  <b>Shop</b> "},
		"count":    {"12"},
		"price":    {"9.5"},
		"on":       {"yes"},
		"site":     {"https://example.com/x"},
		"config":   {`{"theme_color":"#fff"}`},
		"email":    {"Owner@Example.COM"},
		"slug":     {"My Field!"},
		"status":   {"active"},
		"features": {`["a","b"]`},
		"tags":     {"x, y,,z"},
		"date":     {"2024-03-05"},
	})

	assert.Equal(t, "&lt;b&gt;Shop&lt;/b&gt;", p.String("name", true))
	assert.Equal(t, int64(12), p.Int("count", true))
	assert.Equal(t, 9.5, p.Float("price", true))
	assert.True(t, p.Bool("on"))
	assert.False(t, p.Bool("missing"))
	assert.True(t, p.BoolDefault("missing", true))
	assert.Equal(t, "https://example.com/x", p.URL("site", true))
	assert.JSONEq(t, `{"theme_color":"#fff"}`, string(p.JSON("config", true)))
	assert.Equal(t, "owner@example.com", p.Email("email", true))
	assert.Equal(t, "my-field", p.Slug("slug", true))
	assert.Equal(t, "active", p.Enum("status", true, "", "active", "pending"))
	assert.Equal(t, []string{"a", "b"}, p.Strings("features", true))
	assert.Equal(t, []string{"x", "y", "z"}, p.Strings("tags", true))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), p.Time("date", true))
	assert.NoError(t, p.Err())
}

func TestParams_Rejects(t *testing.T) {
	cases := map[string]func(p *Params){
		"negative": func(p *Params) { p.Int("negative", true) },
		"json":     func(p *Params) { p.JSON("json", true) },
		"url":      func(p *Params) { p.URL("url", true) },
		"email":    func(p *Params) { p.Email("email", true) },
		"enum":     func(p *Params) { p.Enum("enum", true, "", "a", "b") },
		"date":     func(p *Params) { p.Time("date", true) },
	}
	values := url.Values{
		"negative": {"-1"},
		"json":     {"{broken"},
		"url":      {"javascript:alert(1)"},
		"email":    {"nope"},
		"enum":     {"c"},
		"date":     {"yesterday"},
	}
	for field, read := range cases {
		t.Run(field, func(t *testing.T) {
			p := NewParams(values)
			read(p)
			require.Error(t, p.Err())
			assert.Equal(t, field, models.AsAppError(p.Err()).Message)
		})
	}
}

func TestParams_JSONKeptVerbatim(t *testing.T) {
	raw := `{"b": 1,  "a": [true, null]}`
	p := NewParams(url.Values{"app_config": {raw}})
	assert.Equal(t, raw, string(p.JSON("app_config", true)))
}

func TestParams_FloatRejectsNonFinite(t *testing.T) {
	for _, v := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "1e400"} {
		p := NewParams(url.Values{"amount": {v}})
		assert.Equal(t, 0.0, p.Float("amount", true), v)
		require.Error(t, p.Err(), v)
		assert.Equal(t, "amount", models.AsAppError(p.Err()).Message, v)
	}
}

func TestParams_SecretNotEscaped(t *testing.T) {
	p := NewParams(url.Values{"key": {" a&b<c> "}})
	assert.Equal(t, "a&b<c>", p.Secret("key", true))
	assert.Equal(t, "", p.Secret("missing", false))
	assert.NoError(t, p.Err())
}
