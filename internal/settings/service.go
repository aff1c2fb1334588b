// Package settings persists the user settings and the last transcript.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"brainwave/internal/domain"
)

const (
	KeyWebsocketURL         = "websocketUrl"
	KeyAutoFill             = "autoFill"
	KeyCurrentTranscription = "currentTranscription"
)

// Service caches settings in memory and writes through to a KV backend.
type Service struct {
	kv     KV
	logger *slog.Logger

	mu            sync.RWMutex
	settings      domain.Settings
	transcription string
}

func NewService(kv KV, logger *slog.Logger) *Service {
	return &Service{kv: kv, logger: logger.With("component", "settings")}
}

// Load reads persisted state, writing defaults for missing settings.
func (s *Service) Load(ctx context.Context, defaultURL string) error {
	url, ok, err := s.kv.Get(ctx, KeyWebsocketURL)
	if err != nil {
		return err
	}
	if !ok || url == "" {
		url = defaultURL
		if err := s.kv.Set(ctx, KeyWebsocketURL, url); err != nil {
			return err
		}
	}

	autoFill := true
	raw, ok, err := s.kv.Get(ctx, KeyAutoFill)
	if err != nil {
		return err
	}
	if ok {
		parsed, perr := strconv.ParseBool(raw)
		if perr != nil {
			s.logger.Warn("invalid stored autoFill, using default", "value", raw)
		} else {
			autoFill = parsed
		}
	}
	if !ok {
		if err := s.kv.Set(ctx, KeyAutoFill, strconv.FormatBool(autoFill)); err != nil {
			return err
		}
	}

	transcription, _, err := s.kv.Get(ctx, KeyCurrentTranscription)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = domain.Settings{WebsocketURL: url, AutoFill: autoFill}
	s.transcription = transcription
	s.mu.Unlock()

	s.logger.Info("settings loaded", "websocket_url", url, "auto_fill", autoFill, "restored_chars", len(transcription))
	return nil
}

func (s *Service) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies patch. An empty websocket URL is ignored.
func (s *Service) Update(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if patch.WebsocketURL != nil && *patch.WebsocketURL != "" {
		if err := s.kv.Set(ctx, KeyWebsocketURL, *patch.WebsocketURL); err != nil {
			return s.settings, fmt.Errorf("update settings: %w", err)
		}
		next.WebsocketURL = *patch.WebsocketURL
	}
	if patch.AutoFill != nil {
		if err := s.kv.Set(ctx, KeyAutoFill, strconv.FormatBool(*patch.AutoFill)); err != nil {
			return s.settings, fmt.Errorf("update settings: %w", err)
		}
		next.AutoFill = *patch.AutoFill
	}
	s.settings = next
	return next, nil
}

// SaveTranscription persists the current transcript.
func (s *Service) SaveTranscription(ctx context.Context, text string) error {
	if err := s.kv.Set(ctx, KeyCurrentTranscription, text); err != nil {
		return err
	}
	s.mu.Lock()
	s.transcription = text
	s.mu.Unlock()
	return nil
}

// Transcription is the transcript restored at Load or last saved.
func (s *Service) Transcription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcription
}

func (s *Service) Close() error {
	return s.kv.Close()
}
