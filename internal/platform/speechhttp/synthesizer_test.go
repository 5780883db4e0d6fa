package speechhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvox/planvox-api/internal/config"
	"github.com/planvox/planvox-api/internal/speech"
)

// wavBytes is a minimal stand-in for WAV audio content.
var wavBytes = []byte("RIFF....WAVE")

func testConfig(url string) config.SpeechConfig {
	return config.SpeechConfig{
		ProviderName:   "acme",
		ProviderURL:    url,
		APIKey:         "test-api-key",
		Model:          "standard-v1",
		DefaultVoice:   "voice-a",
		RequestTimeout: 5 * time.Second,
	}
}

func newSynthesizer(t *testing.T, url string) *HTTPSynthesizer {
	t.Helper()

	s, err := NewHTTPSynthesizer(nil, testConfig(url))
	require.NoError(t, err)
	return s
}

func TestSynthesizeSuccess(t *testing.T) {
	var got synthesisRequest
	var gotAuth, gotAccept string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, apiGenerateSpeech, r.URL.Path)
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))
		gotAccept = r.Header.Get(headerAccept)
		gotAuth = r.Header.Get(headerAuthorization)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set(headerContentType, contentTypeWAV)
		_, _ = w.Write(wavBytes)
	}))
	defer server.Close()

	s := newSynthesizer(t, server.URL)

	result, err := s.Synthesize(context.Background(), speech.Request{
		Text:      "hello world",
		VoiceName: "voice-b",
		Model:     "premium-v2",
	})
	require.NoError(t, err)

	assert.Equal(t, wavBytes, result.Audio)
	assert.Equal(t, "premium-v2", result.Model)
	assert.Equal(t, synthesisRequest{Text: "hello world", Voice: "voice-b", Model: "premium-v2"}, got)
	assert.Equal(t, contentTypeWAV, gotAccept)
	assert.Equal(t, "Bearer test-api-key", gotAuth)
}

func TestSynthesizeAppliesDefaults(t *testing.T) {
	var got synthesisRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set(headerContentType, contentTypeWAV)
		_, _ = w.Write(wavBytes)
	}))
	defer server.Close()

	s := newSynthesizer(t, server.URL)

	result, err := s.Synthesize(context.Background(), speech.Request{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "voice-a", got.Voice, "default voice from config")
	assert.Equal(t, "standard-v1", got.Model, "default model from config")
	assert.Equal(t, "standard-v1", result.Model)
}

func TestSynthesizeEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for empty text")
	}))
	defer server.Close()

	s := newSynthesizer(t, server.URL)

	_, err := s.Synthesize(context.Background(), speech.Request{Text: "   "})
	assert.ErrorIs(t, err, speech.ErrEmptyText)
}

func TestSynthesizeProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorResponse{
			Detail:    "voice not found",
			ErrorCode: "UNKNOWN_VOICE",
		})
	}))
	defer server.Close()

	s := newSynthesizer(t, server.URL)

	_, err := s.Synthesize(context.Background(), speech.Request{Text: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, speech.ErrSynthesisFailed)
	assert.NotErrorIs(t, err, speech.ErrTransientFailure)
	assert.Contains(t, err.Error(), "voice not found")
	assert.Contains(t, err.Error(), "UNKNOWN_VOICE")
}

func TestSynthesizeServerErrorsAreTransient(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		status := status
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("overloaded"))
		}))

		s := newSynthesizer(t, server.URL)

		_, err := s.Synthesize(context.Background(), speech.Request{Text: "hello"})
		assert.ErrorIs(t, err, speech.ErrTransientFailure, "status %d", status)

		server.Close()
	}
}

func TestSynthesizeWrongContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, "text/plain")
		_, _ = w.Write([]byte("not audio"))
	}))
	defer server.Close()

	s := newSynthesizer(t, server.URL)

	_, err := s.Synthesize(context.Background(), speech.Request{Text: "hello"})
	assert.ErrorIs(t, err, speech.ErrInvalidResponse)
}

func TestSynthesizeEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeWAV)
	}))
	defer server.Close()

	s := newSynthesizer(t, server.URL)

	_, err := s.Synthesize(context.Background(), speech.Request{Text: "hello"})
	assert.ErrorIs(t, err, speech.ErrEmptyAudio)
}

func TestSynthesizeUnreachableProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	s := newSynthesizer(t, server.URL)

	_, err := s.Synthesize(context.Background(), speech.Request{Text: "hello"})
	assert.ErrorIs(t, err, speech.ErrTransientFailure)
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, apiHealth, r.URL.Path)
		}))
		defer server.Close()

		s := newSynthesizer(t, server.URL)
		assert.NoError(t, s.HealthCheck(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		s := newSynthesizer(t, server.URL)
		assert.Error(t, s.HealthCheck(context.Background()))
	})
}

func TestNewHTTPSynthesizerValidation(t *testing.T) {
	t.Run("missing provider name", func(t *testing.T) {
		cfg := testConfig("http://localhost:8000")
		cfg.ProviderName = ""
		_, err := NewHTTPSynthesizer(nil, cfg)
		assert.ErrorIs(t, err, speech.ErrInvalidConfig)
	})

	t.Run("missing provider URL", func(t *testing.T) {
		cfg := testConfig("")
		_, err := NewHTTPSynthesizer(nil, cfg)
		assert.ErrorIs(t, err, speech.ErrInvalidConfig)
	})

	t.Run("name comes from config", func(t *testing.T) {
		s := newSynthesizer(t, "http://localhost:8000")
		assert.Equal(t, "acme", s.Name())
	})
}
