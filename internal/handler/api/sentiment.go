package api

import (
	models "SentiFlow/internal/domain/models"
	"SentiFlow/internal/stats"
	"SentiFlow/internal/usecase"
	xhttp "SentiFlow/pkg/http"
	xlogger "SentiFlow/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SentimentHandler serves the read-side REST API over the pipeline.
type SentimentHandler struct {
	logger   *xlogger.Logger
	agg      *usecase.SignalAggregator
	gateway  *usecase.ScoringGateway
	registry *stats.Registry
}

func NewSentimentHandler(logger *xlogger.Logger, agg *usecase.SignalAggregator, gateway *usecase.ScoringGateway, registry *stats.Registry) *SentimentHandler {
	return &SentimentHandler{logger: logger, agg: agg, gateway: gateway, registry: registry}
}

func (h *SentimentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/stats", h.Stats)
	g.GET("/signals/current", h.CurrentSignals)
	g.GET("/news/latest", h.LatestNews)
	g.GET("/sentiment/analyze", h.Analyze)
	g.POST("/sentiment/analyze", h.Analyze)
}

func (h *SentimentHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.registry.Snapshot())
}

func (h *SentimentHandler) CurrentSignals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Symbol != "" {
		sig := h.agg.SignalFor(req.Symbol)
		if sig == nil {
			return xhttp.NotFoundResponse(c, map[string]string{"symbol": req.Symbol})
		}
		return xhttp.SuccessResponse(c, sig)
	}
	return xhttp.SuccessResponse(c, h.agg.CurrentSignals())
}

func (h *SentimentHandler) LatestNews(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.agg.RecentItems(req.Symbol, req.Limit))
}

func (h *SentimentHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	item, err := h.gateway.ScoreText(c.Request().Context(), req.Text, req.Source)
	if err != nil {
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, item)
}
