package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"PairWatch/internal/analytics"
	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	"PairWatch/internal/export"
	xhttp "PairWatch/pkg/http"
	xlogger "PairWatch/pkg/logger"
	xutil "PairWatch/pkg/util"
)

// Pair serves the analytics snapshot of a symbol pair: hedge ratio,
// spread/z-score/correlation trail, and the last ADF result if any.
func (h *Handler) Pair(c echo.Context) error {
	req := &models.PairRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	interval, err := drepo.ParseInterval(req.Interval)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	snap, err := h.pairs.Pair(c.Request().Context(), req.SymbolA, req.SymbolB, interval, req.Window)
	if err != nil {
		h.logger.Error("pair usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

// RunADF triggers the augmented Dickey-Fuller test for a pair's spread
// trail. Insufficient data is a client-visible condition, not a server
// failure; any previously computed result stays in effect.
func (h *Handler) RunADF(c echo.Context) error {
	req := &models.ADFRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	interval, err := drepo.ParseInterval(req.Interval)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	res, err := h.pairs.RunADF(c.Request().Context(), req.SymbolA, req.SymbolB, interval, req.Window)
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrInsufficientData):
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", err.Error(), http.StatusBadRequest))
		case errors.Is(err, analytics.ErrZeroVariance):
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_ZERO_VARIANCE", "", err.Error(), http.StatusBadRequest))
		default:
			h.logger.Error("adf usecase error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	}
	return xhttp.SuccessResponse(c, res)
}

// ExportPairCSV streams the pair analytics trail as a CSV attachment.
func (h *Handler) ExportPairCSV(c echo.Context) error {
	req := &models.PairRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	interval, err := drepo.ParseInterval(req.Interval)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	snap, err := h.pairs.Pair(c.Request().Context(), req.SymbolA, req.SymbolB, interval, req.Window)
	if err != nil {
		h.logger.Error("pair usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	snap.Points = filterPointsRange(c, snap.Points, req.Interval)

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="pair.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	if err := export.WritePairCSV(c.Response(), snap); err != nil {
		h.logger.Error("pair csv export failed", xlogger.Error(err))
		return err
	}
	return nil
}

// filterPointsRange applies the optional from/to query range to the
// analytics trail, aligned to the interval boundary.
func filterPointsRange(c echo.Context, points []models.PairPoint, intervalLabel string) []models.PairPoint {
	fromS, toS := c.QueryParam("from"), c.QueryParam("to")
	if fromS == "" && toS == "" {
		return points
	}
	from := xhttp.ParseTimeDefault(fromS, time.UnixMilli(0))
	to := xhttp.ParseTimeDefault(toS, time.Now().UTC().Add(24*time.Hour))
	from, to = xutil.AlignFromTo(from, to, intervalLabel)

	out := points[:0:0]
	for _, p := range points {
		if p.Timestamp >= from.UnixMilli() && p.Timestamp <= to.UnixMilli() {
			out = append(out, p)
		}
	}
	return out
}
