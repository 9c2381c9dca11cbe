// AngelaMos | 2026
// speech_test.go

package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathi-labs/companion-api/internal/config"
)

func TestAudioFile(t *testing.T) {
	tests := []struct {
		name  string
		audio []byte
		want  string
	}{
		{"id3 tag", []byte("ID3\x04\x00rest"), "voice.mp3"},
		{"frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "voice.mp3"},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3}, "voice.webm"},
		{"0xFF without sync bits", []byte{0xFF, 0x10}, "voice.webm"},
		{"empty", nil, "voice.webm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := AudioFile(tt.audio)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhisperTranscribe(t *testing.T) {
	audio := append([]byte("ID3"), make([]byte, 2048)...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "0", r.FormValue("temperature"))
		assert.Empty(t, r.FormValue("language"))
		assert.Contains(t, r.FormValue("prompt"), "Hindi")

		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "voice.mp3", fh.Filename)

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Len(t, got, len(audio))

		_, _ = w.Write([]byte(`{"text":"  kya kar rahe ho  "}`))
	}))
	defer srv.Close()

	wh := NewWhisper(config.OpenAIConfig{
		APIKey:             "sk-test",
		BaseURL:            srv.URL,
		TranscriptionModel: "whisper-1",
	}, nil)

	text, err := wh.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "kya kar rahe ho", text)
}

func TestWhisperTranscribeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWhisper(config.OpenAIConfig{BaseURL: srv.URL, TranscriptionModel: "whisper-1"}, nil)

	_, err := wh.Transcribe(context.Background(), make([]byte, 2048))
	assert.ErrorContains(t, err, "status=500")
}

func newTestElevenLabs(baseURL string) *ElevenLabs {
	return NewElevenLabs(config.ElevenLabsConfig{
		APIKey:  "xi-test",
		BaseURL: baseURL,
		ModelID: "eleven_multilingual_v2",
		Voices: map[string]string{
			"default": "voice-default",
			"Priya":   "voice-priya",
		},
		Stability:       0.5,
		SimilarityBoost: 0.75,
	}, nil)
}

func TestElevenLabsVoiceFor(t *testing.T) {
	e := newTestElevenLabs("http://unused")

	assert.Equal(t, "voice-priya", e.VoiceFor("PRIYA"))
	assert.Equal(t, "voice-priya", e.VoiceFor("unknown", "priya"))
	assert.Equal(t, "voice-default", e.VoiceFor("neha"))
	assert.Equal(t, "voice-default", e.VoiceFor())
}

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice-priya", r.URL.Path)
		assert.Equal(t, "xi-test", r.Header.Get("xi-api-key"))
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))

		var body struct {
			Text          string        `json:"text"`
			ModelID       string        `json:"model_id"`
			VoiceSettings voiceSettings `json:"voice_settings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello jaan", body.Text)
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)
		assert.InDelta(t, 0.5, body.VoiceSettings.Stability, 1e-9)
		assert.InDelta(t, 0.75, body.VoiceSettings.SimilarityBoost, 1e-9)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	audio, err := newTestElevenLabs(srv.URL).Synthesize(context.Background(), "hello jaan", "Priya")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
}

func TestElevenLabsSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := newTestElevenLabs(srv.URL).Synthesize(context.Background(), "hi")
	assert.ErrorContains(t, err, "status=401")
}
