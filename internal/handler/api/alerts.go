package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"PairWatch/internal/alert"
	"PairWatch/internal/domain/models"
	xhttp "PairWatch/pkg/http"
)

// ListAlerts returns every configured rule.
func (h *Handler) ListAlerts(c echo.Context) error {
	rules := h.pairs.Alerts().List()
	return xhttp.ListResponse(c, rules, int64(len(rules)))
}

// CreateAlert registers a new z-score threshold rule.
func (h *Handler) CreateAlert(c echo.Context) error {
	req := &models.CreateAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rule := models.AlertRule{
		Name:      req.Name,
		SymbolA:   req.SymbolA,
		SymbolB:   req.SymbolB,
		Threshold: req.Threshold,
	}
	if err := h.pairs.Alerts().Add(rule); err != nil {
		if errors.Is(err, alert.ErrExists) {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_ALERT_EXISTS", "name", err.Error(), http.StatusConflict))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, rule)
}

// DeleteAlert removes a rule by name.
func (h *Handler) DeleteAlert(c echo.Context) error {
	name := c.Param("name")
	if err := h.pairs.Alerts().Remove(name); err != nil {
		if errors.Is(err, alert.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("alert rule %q not found", name))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// SetAlertActive toggles a rule without losing it.
func (h *Handler) SetAlertActive(c echo.Context) error {
	req := &models.SetAlertActiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	name := c.Param("name")
	if err := h.pairs.Alerts().SetActive(name, *req.Active); err != nil {
		if errors.Is(err, alert.ErrNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("alert rule %q not found", name))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// AlertHistory returns the most recent trigger events.
func (h *Handler) AlertHistory(c echo.Context) error {
	req := &models.AlertHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	events := h.pairs.Alerts().History(req.Limit)
	return xhttp.ListResponse(c, events, int64(len(events)))
}
