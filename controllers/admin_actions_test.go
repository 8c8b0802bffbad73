package controllers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aslaburda/aslp_backend/utils"
)

func TestSettingsUpdate_KeyKeptVerbatim(t *testing.T) {
	upd, err := settingsUpdate(utils.NewParams(url.Values{
		"ai_api_key": {`  sk-a&b<c>"d  `},
		"ai_model":   {"gpt <4>"},
	}))
	require.NoError(t, err)
	require.NotNil(t, upd.AIAPIKey)
	assert.Equal(t, `sk-a&b<c>"d`, *upd.AIAPIKey)
	require.NotNil(t, upd.AIModel)
	assert.Equal(t, "gpt &lt;4&gt;", *upd.AIModel)
}

func TestSettingsUpdate_EmptyKeySubmitted(t *testing.T) {
	upd, err := settingsUpdate(utils.NewParams(url.Values{"ai_api_key": {""}}))
	require.NoError(t, err)
	require.NotNil(t, upd.AIAPIKey)
	assert.Equal(t, "", *upd.AIAPIKey)
	assert.Nil(t, upd.AIModel)
}
