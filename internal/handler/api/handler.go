package api

import (
	"github.com/labstack/echo/v4"

	"PairWatch/internal/usecase"
	xhttp "PairWatch/pkg/http"
	xlogger "PairWatch/pkg/logger"
)

// FeedStatus reports whether the ingestion feed is healthy.
type FeedStatus interface {
	IsConnected() bool
}

// Handler wires the HTTP API: series reads, pair analytics, alert
// management, and CSV export.
type Handler struct {
	logger *xlogger.Logger
	market *usecase.MarketQuery
	pairs  *usecase.PairAnalytics
	feed   FeedStatus
}

func NewHandler(logger *xlogger.Logger, market *usecase.MarketQuery, pairs *usecase.PairAnalytics, feed FeedStatus) *Handler {
	return &Handler{logger: logger, market: market, pairs: pairs, feed: feed}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.GET("/series", h.Series)
	g.GET("/pair", h.Pair)
	g.POST("/pair/adf", h.RunADF)

	g.GET("/alerts", h.ListAlerts)
	g.POST("/alerts", h.CreateAlert)
	g.DELETE("/alerts/:name", h.DeleteAlert)
	g.PATCH("/alerts/:name", h.SetAlertActive)
	g.GET("/alerts/history", h.AlertHistory)

	g.GET("/export/series.csv", h.ExportSeriesCSV)
	g.GET("/export/pair.csv", h.ExportPairCSV)
}

// Healthz reports process liveness and feed connectivity.
func (h *Handler) Healthz(c echo.Context) error {
	status := map[string]interface{}{
		"status": "ok",
	}
	if h.feed != nil {
		status["feed_connected"] = h.feed.IsConnected()
	}
	return xhttp.SuccessResponse(c, status)
}

var _ xhttp.Handler = (*Handler)(nil)
