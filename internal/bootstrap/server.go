package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"brainwave/internal/agent"
	"brainwave/internal/config"
	"brainwave/internal/document"
	"brainwave/internal/httpapi"
	"brainwave/internal/logging"
	"brainwave/internal/router"
)

// DocumentPath names an HTML file to attach as a page, or is empty.
type DocumentPath string

const pageEndpoint router.Endpoint = "page-1"

// ProvidePage loads the configured document and attaches it to the bus.
// It returns nil when no document is configured.
func ProvidePage(lc fx.Lifecycle, path DocumentPath, bus *router.Bus, logger *slog.Logger) (*agent.Page, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc, err := document.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", path, err)
	}

	page := agent.NewPage(pageEndpoint, doc, bus, logger)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			page.Attach(context.Background())
			logger.Info("document attached", "path", string(path), "endpoint", string(page.Endpoint()))
			return nil
		},
		OnStop: func(context.Context) error {
			page.Detach()
			return nil
		},
	})
	return page, nil
}

func NewHTTPServer(bus *router.Bus, page *agent.Page, logger *slog.Logger) *echo.Echo {
	return httpapi.NewServer(httpapi.NewHandler(bus, page, logger), logger)
}

func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
			}
			e.Listener = ln
			go func() {
				if err := e.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", "error", err)
				}
			}()
			logger.Info("http api listening", "addr", ln.Addr().String())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(ProvidePage, NewHTTPServer),
	fx.Invoke(StartServer),
)

// Run starts the headless daemon and blocks until it receives a signal.
func Run(documentPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, os.Stderr)

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, logger, DocumentPath(documentPath)),
		Module,
		ServerModule,
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}
