// Package httpapi exposes the router over HTTP so out-of-process panels can
// send requests and follow broadcasts as server-sent events.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"brainwave/internal/agent"
	"brainwave/internal/document"
	"brainwave/internal/domain"
	"brainwave/internal/router"
	"brainwave/internal/usecase"
)

const (
	sseKeepAliveInterval = 30 * time.Second
	sseBuffer            = 64
)

// Bus is the router surface served over HTTP.
type Bus interface {
	Send(ctx context.Context, to router.Endpoint, req router.Request) (router.Response, error)
	Subscribe(fn func(router.Broadcast)) func()
}

type Handler struct {
	bus    Bus
	page   *agent.Page
	logger *slog.Logger
}

// NewHandler serves bus. page may be nil when no document is attached.
func NewHandler(bus Bus, page *agent.Page, logger *slog.Logger) *Handler {
	return &Handler{bus: bus, page: page, logger: logger.With("component", "http_api")}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/messages", h.HandleMessage)
	g.GET("/events", h.HandleEvents)
	g.GET("/status", h.HandleStatus)
	if h.page != nil {
		g.GET("/document", h.HandleRenderDocument)
		g.POST("/document/focus/:id", h.HandleFocus)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleMessage decodes an action envelope and sends it to the endpoint in
// the "endpoint" query parameter, or to the controller.
func (h *Handler) HandleMessage(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}
	req, err := router.DecodeRequest(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	to := router.ControllerEndpoint
	if endpoint := c.QueryParam("endpoint"); endpoint != "" {
		to = router.Endpoint(endpoint)
	}

	resp, err := h.bus.Send(c.Request().Context(), to, req)
	if err != nil {
		h.logger.Warn("request failed", "action", req.Action(), "endpoint", to, "error", err)
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleStatus(c echo.Context) error {
	resp, err := h.bus.Send(c.Request().Context(), router.ControllerEndpoint, router.GetStatus{})
	if err != nil {
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleEvents streams broadcasts until the client goes away. Slow clients
// lose events rather than stalling publishers.
func (h *Handler) HandleEvents(c echo.Context) error {
	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	events := make(chan router.Broadcast, sseBuffer)
	unsubscribe := h.bus.Subscribe(func(b router.Broadcast) {
		select {
		case events <- b:
		default:
			h.logger.Warn("dropping event for slow client", "action", b.Action())
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case b := <-events:
			data, err := router.EncodeBroadcast(b)
			if err != nil {
				h.logger.Error("failed to encode event", "error", err)
				continue
			}
			if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Handler) HandleFocus(c echo.Context) error {
	if err := h.page.Focus(c.Param("id")); err != nil {
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleRenderDocument(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return h.page.Do(func(doc *document.Document) error {
		return doc.Render(c.Response())
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, router.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, router.ErrNoEndpoint), errors.Is(err, agent.ErrElementNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrSessionBusy), errors.Is(err, domain.ErrNoEligibleTarget):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransportConnect), errors.Is(err, domain.ErrTransportClosed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrCaptureDevice):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
