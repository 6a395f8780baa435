package persistence

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestUserPresetValidate(t *testing.T) {
	cases := []struct {
		name    string
		preset  UserPreset
		wantErr string
	}{
		{"ok", UserPreset{Name: "Q4 push", Config: json.RawMessage(`{"months":12}`)}, ""},
		{"blank name", UserPreset{Name: "  ", Config: json.RawMessage(`{}`)}, "name is required"},
		{"long name", UserPreset{Name: strings.Repeat("x", 101), Config: json.RawMessage(`{}`)}, "name exceeds"},
		{"long description", UserPreset{Name: "a", Description: strptr(strings.Repeat("x", 501)), Config: json.RawMessage(`{}`)}, "description exceeds"},
		{"array config", UserPreset{Name: "a", Config: json.RawMessage(`[1,2]`)}, "JSON object"},
		{"null config", UserPreset{Name: "a", Config: json.RawMessage(`null`)}, "JSON object"},
		{"missing config", UserPreset{Name: "a"}, "JSON object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.preset.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestPresetPatch(t *testing.T) {
	assert.True(t, PresetPatch{}.IsEmpty())
	assert.NoError(t, PresetPatch{}.Validate())
	assert.NoError(t, PresetPatch{Description: strptr("")}.Validate())
	assert.Error(t, PresetPatch{Name: strptr("")}.Validate())
	assert.Error(t, PresetPatch{Config: json.RawMessage(`"x"`)}.Validate())
	assert.False(t, PresetPatch{Config: json.RawMessage(`{}`)}.IsEmpty())
}
