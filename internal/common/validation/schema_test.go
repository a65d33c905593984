package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSON_Verdict(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantField string
		wantText  string
	}{
		{
			name:      "complete verdict",
			raw:       `{"final_verdict":"Misleading","confidence_score":0.8,"summary":"Old footage.","visual_red_flags":["cut at 0:12"]}`,
			wantValid: true,
		},
		{
			name:      "boundary confidence accepted",
			raw:       `{"final_verdict":"Authentic","confidence_score":1,"summary":"ok"}`,
			wantValid: true,
		},
		{
			name:      "confidence above range",
			raw:       `{"final_verdict":"Authentic","confidence_score":1.4,"summary":"ok"}`,
			wantValid: false,
			wantField: "confidence_score",
		},
		{
			name:      "confidence below range",
			raw:       `{"final_verdict":"Authentic","confidence_score":-0.1,"summary":"ok"}`,
			wantValid: false,
			wantField: "confidence_score",
		},
		{
			name:      "missing verdict",
			raw:       `{"confidence_score":0.5,"summary":"ok"}`,
			wantValid: false,
			wantText:  "final_verdict",
		},
		{
			name:      "not json",
			raw:       `The video is probably fake.`,
			wantValid: false,
			wantField: "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, result, err := ValidateJSON(tt.raw, VerdictSchema())
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid, result.GetErrorMessages())
			if tt.wantField != "" {
				assert.True(t, result.HasErrors(tt.wantField), result.GetErrorMessages())
			}
			if tt.wantText != "" {
				assert.Contains(t, strings.Join(result.GetErrorMessages(), "; "), tt.wantText)
			}
		})
	}
}

func TestValidateSourceURL(t *testing.T) {
	assert.NoError(t, ValidateSourceURL("https://www.youtube.com/watch?v=abc"))
	assert.NoError(t, ValidateSourceURL("http://cdn.example.com/clip.mp4"))
	assert.Error(t, ValidateSourceURL(""))
	assert.Error(t, ValidateSourceURL("   "))
	assert.Error(t, ValidateSourceURL("ftp://example.com/clip.mp4"))
	assert.Error(t, ValidateSourceURL("not a url"))
}
