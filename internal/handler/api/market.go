package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	"PairWatch/internal/export"
	xhttp "PairWatch/pkg/http"
	xlogger "PairWatch/pkg/logger"
	xutil "PairWatch/pkg/util"
)

// Series serves the resampled bars of one symbol at one interval, the
// open bar included and flagged on the last element.
func (h *Handler) Series(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	interval, err := drepo.ParseInterval(req.Interval)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	bars := h.market.Series(req.Symbol, interval, req.Limit)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":   req.Symbol,
		"interval": req.Interval,
		"bars":     bars,
	})
}

// ExportSeriesCSV streams the bars of one symbol as a CSV attachment.
func (h *Handler) ExportSeriesCSV(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	interval, err := drepo.ParseInterval(req.Interval)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	bars := h.market.Series(req.Symbol, interval, req.Limit)
	bars = filterBarsRange(c, bars, req.Interval)

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="series.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	if err := export.WriteSeriesCSV(c.Response(), bars); err != nil {
		h.logger.Error("series csv export failed", xlogger.Error(err))
		return err
	}
	return nil
}

// filterBarsRange applies the optional from/to query range, aligned to
// the interval boundary so partial buckets are not exported.
func filterBarsRange(c echo.Context, bars []models.Bar, intervalLabel string) []models.Bar {
	fromS, toS := c.QueryParam("from"), c.QueryParam("to")
	if fromS == "" && toS == "" {
		return bars
	}
	from := xhttp.ParseTimeDefault(fromS, time.UnixMilli(0))
	to := xhttp.ParseTimeDefault(toS, time.Now().UTC().Add(24*time.Hour))
	from, to = xutil.AlignFromTo(from, to, intervalLabel)

	out := bars[:0:0]
	for _, b := range bars {
		if b.Start >= from.UnixMilli() && b.Start <= to.UnixMilli() {
			out = append(out, b)
		}
	}
	return out
}
