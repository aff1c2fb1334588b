package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"brainwave/internal/audio"
	"brainwave/internal/capture"
	"brainwave/internal/config"
	"brainwave/internal/ports"
	"brainwave/internal/router"
	"brainwave/internal/settings"
	"brainwave/internal/transcript"
	"brainwave/internal/transport"
	"brainwave/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Bus        *router.Bus
	Controller *usecase.Controller
	Settings   *settings.Service
	Transcript *transcript.Aggregator
}

// Build wires all backend dependencies for cfg and registers the controller
// on a fresh bus. Callers must Close the result.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (Services, error) {
	return BuildWithCapture(ctx, cfg, audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand), logger)
}

// BuildWithCapture is Build with an explicit capture device.
func BuildWithCapture(ctx context.Context, cfg config.Config, capturer ports.AudioCapture, logger *slog.Logger) (Services, error) {
	kv, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return Services{}, err
	}

	store := settings.NewService(kv, logger)
	if err := store.Load(ctx, cfg.Service.WebsocketURL); err != nil {
		_ = store.Close()
		return Services{}, fmt.Errorf("load settings: %w", err)
	}

	bus := router.NewBus()
	aggregator := transcript.NewAggregator(store.Transcription(), store, logger)
	ws := transport.NewWebSocket(logger)

	controller := usecase.NewController(
		capturer,
		ws,
		store,
		aggregator,
		bus,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SourceSampleRate,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Encoder: capture.Config{
				SourceRate: cfg.Audio.SourceSampleRate,
				TargetRate: cfg.Audio.TargetSampleRate,
			},
			BlockSize: cfg.Audio.BlockSize,
			TapDir:    cfg.Audio.TapDir,
		},
		logger,
	)
	ws.SetObserver(controller)
	bus.Register(router.ControllerEndpoint, controller)

	return Services{
		Config:     cfg,
		Bus:        bus,
		Controller: controller,
		Settings:   store,
		Transcript: aggregator,
	}, nil
}

// Close stops any recording, closes the transport and the settings store.
func (s Services) Close(ctx context.Context) error {
	s.Bus.Unregister(router.ControllerEndpoint)
	return errors.Join(s.Controller.Shutdown(ctx), s.Settings.Close())
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (settings.KV, error) {
	switch cfg.Backend {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return settings.NewRedisKV(client, ""), nil
	case config.StoreBadger:
		return settings.OpenBadger(cfg.DataDir, logger)
	default:
		return nil, fmt.Errorf("unsupported settings store %q", cfg.Backend)
	}
}
