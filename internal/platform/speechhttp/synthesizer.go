package speechhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/planvox/planvox-api/internal/config"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/speech"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	contentTypeWAV      = "audio/wav"
)

// synthesisRequest is the JSON payload sent to the provider.
type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	Model string `json:"model,omitempty"`
}

// errorResponse is the provider's structured error body.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HTTPSynthesizer implements the speech.Synthesizer interface against an
// HTTP text-to-speech service.
type HTTPSynthesizer struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains the provider settings
	config config.SpeechConfig

	// httpClient is the HTTP client for making requests
	httpClient *http.Client
}

// NewHTTPSynthesizer creates a synthesizer for the provider described by cfg.
// Returns speech.ErrInvalidConfig if the provider settings are incomplete.
func NewHTTPSynthesizer(log *slog.Logger, cfg config.SpeechConfig) (*HTTPSynthesizer, error) {
	if log == nil {
		log = slog.Default()
	}

	if cfg.ProviderName == "" {
		return nil, fmt.Errorf("%w: provider name cannot be empty", speech.ErrInvalidConfig)
	}

	if cfg.ProviderURL == "" {
		return nil, fmt.Errorf("%w: provider URL cannot be empty", speech.ErrInvalidConfig)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &HTTPSynthesizer{
		logger: log.With(
			slog.String("component", "speech_synthesizer"),
			slog.String("provider", cfg.ProviderName),
		),
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Ensure HTTPSynthesizer implements speech.Synthesizer interface
var _ speech.Synthesizer = (*HTTPSynthesizer)(nil)

// Name implements speech.Synthesizer.Name
func (s *HTTPSynthesizer) Name() string {
	return s.config.ProviderName
}

// Synthesize implements speech.Synthesizer.Synthesize
// It sends the synthesis request and returns the raw WAV audio.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, req speech.Request) (*speech.Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if strings.TrimSpace(req.Text) == "" {
		return nil, speech.ErrEmptyText
	}

	voice := req.VoiceName
	if voice == "" {
		voice = s.config.DefaultVoice
	}

	model := req.Model
	if model == "" {
		model = s.config.Model
	}

	body, err := json.Marshal(synthesisRequest{
		Text:  req.Text,
		Voice: voice,
		Model: model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.config.ProviderURL+apiGenerateSpeech,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)
	if s.config.APIKey != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("synthesis request failed to reach provider",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: request to %s failed: %v",
			speech.ErrTransientFailure, s.config.ProviderURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, s.parseErrorResponse(resp)
	}

	if contentType := resp.Header.Get(headerContentType); contentType != contentTypeWAV {
		return nil, fmt.Errorf("%w: unexpected content type %q",
			speech.ErrInvalidResponse, contentType)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio data: %v",
			speech.ErrTransientFailure, err)
	}

	if len(audio) == 0 {
		return nil, speech.ErrEmptyAudio
	}

	log.Debug("synthesis completed",
		slog.String("voice", voice),
		slog.String("model", model),
		slog.String("audio_size", humanize.Bytes(uint64(len(audio)))))

	return &speech.Result{
		Audio: audio,
		Model: model,
	}, nil
}

// HealthCheck implements speech.Synthesizer.HealthCheck
func (s *HTTPSynthesizer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		s.config.ProviderURL+apiHealth,
		http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for provider at %s: %w",
			s.config.ProviderURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error from the provider, or
// falls back to the raw body so diagnostics survive non-JSON failures.
// Server-side statuses map to ErrTransientFailure so the queue retries them;
// everything else is a hard synthesis failure.
func (s *HTTPSynthesizer) parseErrorResponse(resp *http.Response) error {
	kind := speech.ErrSynthesisFailed
	if resp.StatusCode >= http.StatusInternalServerError ||
		resp.StatusCode == http.StatusTooManyRequests {
		kind = speech.ErrTransientFailure
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("%w: provider returned %s", kind, resp.Status)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		if errResp.ErrorCode != "" {
			return fmt.Errorf("%w: provider returned %s: %s (code: %s)",
				kind, resp.Status, errResp.Detail, errResp.ErrorCode)
		}
		return fmt.Errorf("%w: provider returned %s: %s", kind, resp.Status, errResp.Detail)
	}

	return fmt.Errorf("%w: provider returned %s: %s", kind, resp.Status, string(body))
}
