package handler

import (
	"net/http"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/service"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct{ svc service.StatisticsService }

func NewStatisticsHandler(svc service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{svc: svc}
}

// Get returns sales totals, cost, profit and the top products for an
// inclusive date range.
// GET /v1/statistics?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *StatisticsHandler) Get(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}
	var filter dto.StatisticsFilter
	if !bindQuery(c, &filter) {
		return
	}
	from, verr := parseDate("from", filter.From)
	if verr != nil {
		writeError(c, verr)
		return
	}
	to, verr := parseDate("to", filter.To)
	if verr != nil {
		writeError(c, verr)
		return
	}
	resp, err := h.svc.GetStatistics(c.Request.Context(), tenant, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
