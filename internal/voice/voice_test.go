// AngelaMos | 2026
// voice_test.go

package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saathi-labs/companion-api/internal/character"
	"github.com/saathi-labs/companion-api/internal/chat"
	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/language"
	"github.com/saathi-labs/companion-api/internal/llm"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

const userID = "11111111-1111-1111-1111-111111111111"

type fakeChat struct {
	balance  int
	openErr  error
	genErr   error
	reply    string
	gotLang  language.Language
	gotVoice bool
	recorded []*chat.Message
	charged  int
}

func (f *fakeChat) Open(_ context.Context, _ string, id int64) (*chat.Exchange, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.balance <= 0 {
		return nil, core.ErrInsufficientCoins
	}
	return &chat.Exchange{
		UserID:       userID,
		Conversation: &chat.Conversation{ID: id, UserID: userID, CharacterID: 1},
		Character:    &character.Character{ID: 1, Key: "neha", Name: "Neha.ai"},
		Balance:      f.balance,
	}, nil
}

func (f *fakeChat) History(context.Context, int64) ([]llm.Turn, error) {
	return nil, nil
}

func (f *fakeChat) Generate(
	_ context.Context,
	_ *chat.Exchange,
	_ []llm.Turn,
	_ string,
	lang language.Language,
	voice bool,
) (string, error) {
	f.gotLang = lang
	f.gotVoice = voice
	if f.genErr != nil {
		return "", f.genErr
	}
	return f.reply, nil
}

func (f *fakeChat) Record(_ context.Context, _ *chat.Exchange, u, a *chat.Message) (int, error) {
	f.recorded = append(f.recorded, u, a)
	return len(f.recorded), nil
}

func (f *fakeChat) Charge(context.Context, *chat.Exchange) (int, error) {
	if f.balance <= 0 {
		return 0, core.ErrInsufficientCoins
	}
	f.balance--
	f.charged++
	return f.balance, nil
}

type mockSTT struct{ mock.Mock }

func (m *mockSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

type mockTTS struct{ mock.Mock }

func (m *mockTTS) Synthesize(ctx context.Context, text string, names ...string) ([]byte, error) {
	args := m.Called(ctx, text, names)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func clip(n int) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x1A}, n))
}

func newService(f *fakeChat, stt *mockSTT, tts *mockTTS) *Service {
	return NewService(ServiceConfig{
		Chat:        f,
		Transcriber: stt,
		Synthesizer: tts,
	})
}

func TestDecodeAudio(t *testing.T) {
	svc := NewService(ServiceConfig{})

	_, _, err := svc.DecodeAudio("")
	assert.ErrorIs(t, err, ErrAudioMissing)

	_, _, err = svc.DecodeAudio("***")
	assert.ErrorIs(t, err, ErrAudioMalformed)

	_, _, err = svc.DecodeAudio(clip(DefaultMinAudioBytes - 1))
	assert.ErrorIs(t, err, ErrAudioTooShort)

	audio, payload, err := svc.DecodeAudio("data:audio/webm;base64," + clip(2048))
	require.NoError(t, err)
	assert.Len(t, audio, 2048)
	assert.Equal(t, clip(2048), payload)
}

func TestVoiceMessage(t *testing.T) {
	f := &fakeChat{balance: 2, reply: "Main bhi tumhe miss kar rahi thi!"}
	stt := &mockSTT{}
	tts := &mockTTS{}
	stt.On("Transcribe", mock.Anything, mock.Anything).
		Return("yaar I really want to see you, can we meet tomorrow", nil)
	tts.On("Synthesize", mock.Anything, f.reply, []string{"neha", "Neha.ai"}).
		Return([]byte("mp3-bytes"), nil)

	res, err := newService(f, stt, tts).Message(context.Background(), userID, 7, clip(4096))
	require.NoError(t, err)

	assert.Equal(t, language.Hinglish, f.gotLang)
	assert.True(t, f.gotVoice)
	assert.Equal(t, []byte("mp3-bytes"), res.VoiceResponse)
	assert.Equal(t, "data:audio/webm;base64,"+clip(4096), res.UserAudio)
	assert.Equal(t, 1, res.UserCoins)
	assert.Equal(t, 2, res.MessageCount)
	require.Len(t, f.recorded, 2)
	assert.Equal(t, chat.SenderUser, f.recorded[0].Sender)
	assert.Equal(t, language.Hinglish, f.recorded[0].Language)
	assert.Equal(t, chat.SenderAssistant, f.recorded[1].Sender)
}

func TestVoiceMessageLabelsMP3Audio(t *testing.T) {
	f := &fakeChat{balance: 1, reply: "hello"}
	stt := &mockSTT{}
	tts := &mockTTS{}
	stt.On("Transcribe", mock.Anything, mock.Anything).Return("hello there", nil)
	tts.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return([]byte("mp3"), nil)

	mp3 := append([]byte("ID3"), bytes.Repeat([]byte{0x00}, 2048)...)
	payload := base64.StdEncoding.EncodeToString(mp3)

	res, err := newService(f, stt, tts).Message(context.Background(), userID, 7, payload)
	require.NoError(t, err)
	assert.Equal(t, "data:audio/mpeg;base64,"+payload, res.UserAudio)
}

func TestVoiceMessageNoCoins(t *testing.T) {
	f := &fakeChat{balance: 0}
	stt := &mockSTT{}
	tts := &mockTTS{}

	_, err := newService(f, stt, tts).Message(context.Background(), userID, 7, clip(4096))
	assert.ErrorIs(t, err, core.ErrInsufficientCoins)

	stt.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
	tts.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoiceMessageFailuresDoNotCharge(t *testing.T) {
	tests := []struct {
		name    string
		stt     func(*mockSTT)
		tts     func(*mockTTS)
		genErr  error
		wantErr error
	}{
		{
			name: "silence",
			stt: func(m *mockSTT) {
				m.On("Transcribe", mock.Anything, mock.Anything).Return("  ", nil)
			},
			tts:     func(*mockTTS) {},
			wantErr: ErrNoSpeech,
		},
		{
			name: "transcription error",
			stt: func(m *mockSTT) {
				m.On("Transcribe", mock.Anything, mock.Anything).Return("", errors.New("whisper down"))
			},
			tts:     func(*mockTTS) {},
			wantErr: ErrTranscribeFailed,
		},
		{
			name: "completion error",
			stt: func(m *mockSTT) {
				m.On("Transcribe", mock.Anything, mock.Anything).Return("hello there", nil)
			},
			tts:     func(*mockTTS) {},
			genErr:  errors.Join(core.ErrUpstream, errors.New("llm down")),
			wantErr: core.ErrUpstream,
		},
		{
			name: "synthesis error",
			stt: func(m *mockSTT) {
				m.On("Transcribe", mock.Anything, mock.Anything).Return("hello there", nil)
			},
			tts: func(m *mockTTS) {
				m.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("quota exceeded"))
			},
			wantErr: ErrSynthesisFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeChat{balance: 3, reply: "hi", genErr: tt.genErr}
			stt := &mockSTT{}
			tts := &mockTTS{}
			tt.stt(stt)
			tt.tts(tts)

			_, err := newService(f, stt, tts).Message(context.Background(), userID, 7, clip(4096))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.charged)
			assert.Empty(t, f.recorded)
		})
	}
}

func serve(t *testing.T, svc *Service, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.IdentityKey, &middleware.Identity{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, auth, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestHandlerMessage(t *testing.T) {
	f := &fakeChat{balance: 1, reply: "hello!"}
	stt := &mockSTT{}
	tts := &mockTTS{}
	stt.On("Transcribe", mock.Anything, mock.Anything).Return("hi", nil)
	tts.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return([]byte{0xFF, 0xFB}, nil)

	rec := serve(t, newService(f, stt, tts), "/voice/message",
		fmt.Sprintf(`{"conversationId":3,"audioData":%q}`, clip(2048)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data MessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xFF, 0xFB}), body.Data.VoiceResponse)
	assert.True(t, strings.HasPrefix(body.Data.UserAudioData, "data:audio/webm;base64,"))
	assert.Zero(t, body.Data.UserCoins)
	assert.Equal(t, "english", body.Data.Language)
}

func TestHandlerNeedsPayment(t *testing.T) {
	rec := serve(t, newService(&fakeChat{}, &mockSTT{}, &mockTTS{}), "/voice/message",
		fmt.Sprintf(`{"conversationId":3,"audioData":%q}`, clip(2048)))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), `"needsPayment":true`)
}

func TestHandlerTranscribe(t *testing.T) {
	stt := &mockSTT{}
	stt.On("Transcribe", mock.Anything, mock.Anything).Return("namaste", nil)
	svc := newService(&fakeChat{}, stt, &mockTTS{})

	rec := serve(t, svc, "/voice/transcribe", fmt.Sprintf(`{"audioData":%q}`, clip(2048)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transcription":"namaste"`)

	rec = serve(t, svc, "/voice/transcribe", fmt.Sprintf(`{"audioData":%q}`, clip(10)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, svc, "/voice/transcribe", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
