package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-workers/internal/capability"
)

func chatServer(t *testing.T, content string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if captured != nil {
				*captured = body
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "cmpl-1",
				"object": "chat.completion",
				"choices": []map[string]interface{}{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]interface{}{"role": "assistant", "content": content},
				}},
			})
		case "/v1/audio/transcriptions":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"text":"  breaking news from the scene  "}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(url string) *Client {
	return NewClient(&Config{
		BaseURL:            url + "/v1",
		APIKey:             "test-key",
		Model:              "gpt-4o-mini",
		TranscriptionModel: "whisper-1",
		MaxTokens:          200,
	})
}

func TestGenerate_TextOnly(t *testing.T) {
	var body map[string]interface{}
	server := chatServer(t, "  consolidated  ", &body)
	defer server.Close()

	out, err := newTestClient(server.URL).Generate(context.Background(), capability.GenerationRequest{
		Role:         "Senior Intelligence Editor",
		Instructions: "Merge the reports.",
		Evidence:     "[frame_0 ok] nothing unusual",
	})
	require.NoError(t, err)
	assert.Equal(t, "consolidated", out)

	msgs := body["messages"].([]interface{})
	require.Len(t, msgs, 2)
	system := msgs[0].(map[string]interface{})
	assert.Contains(t, system["content"], "Senior Intelligence Editor")
	assert.Nil(t, body["response_format"])
}

func TestGenerate_ImagesAndSchema(t *testing.T) {
	var body map[string]interface{}
	server := chatServer(t, `{"final_verdict":"Authentic"}`, &body)
	defer server.Close()

	img := filepath.Join(t.TempDir(), "frame_0.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xff, 0xd8, 0xff, 0xd9}, 0o600))

	_, err := newTestClient(server.URL).Generate(context.Background(), capability.GenerationRequest{
		Role:     "Chief Forensic Analyst",
		Evidence: "look at this",
		Images:   []string{img},
		Schema:   map[string]interface{}{"type": "object"},
		Strict:   true,
	})
	require.NoError(t, err)

	msgs := body["messages"].([]interface{})
	system := msgs[0].(map[string]interface{})["content"].(string)
	assert.Contains(t, system, "JSON Schema")
	assert.Contains(t, system, "No prose")

	parts := msgs[1].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]interface{})
	url := imagePart["image_url"].(map[string]interface{})["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	format := body["response_format"].(map[string]interface{})
	assert.Equal(t, "json_object", format["type"])
}

func TestGenerate_MissingImage(t *testing.T) {
	server := chatServer(t, "unused", nil)
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), capability.GenerationRequest{
		Images: []string{filepath.Join(t.TempDir(), "gone.jpg")},
	})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	server := chatServer(t, "", nil)
	defer server.Close()

	audio := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o600))

	client := newTestClient(server.URL)
	text, err := client.Transcribe(context.Background(), &capability.AudioTrack{Path: audio})
	require.NoError(t, err)
	assert.Equal(t, "breaking news from the scene", text)

	_, err = client.Transcribe(context.Background(), nil)
	assert.ErrorIs(t, err, capability.ErrNoAudio)
}
