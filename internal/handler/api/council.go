package api

import (
	"sort"

	models "SigCouncil/internal/domain/models"
	domrepo "SigCouncil/internal/domain/repository"
	"SigCouncil/internal/services/optimizer"
	"SigCouncil/internal/services/tracker"
	xhttp "SigCouncil/pkg/http"
	xlogger "SigCouncil/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CouncilHandler exposes the read-only view of the aggregation core:
// recommendation history, bot performance, the live weight snapshot and
// resolved outcomes.
type CouncilHandler struct {
	logger   *xlogger.Logger
	recs     domrepo.RecommendationStore
	outcomes domrepo.OutcomeStore
	tracker  *tracker.Tracker
	opt      *optimizer.Optimizer
}

func NewCouncilHandler(
	logger *xlogger.Logger,
	recs domrepo.RecommendationStore,
	outcomes domrepo.OutcomeStore,
	trk *tracker.Tracker,
	opt *optimizer.Optimizer,
) *CouncilHandler {
	return &CouncilHandler{logger: logger, recs: recs, outcomes: outcomes, tracker: trk, opt: opt}
}

func (h *CouncilHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/recommendations", h.Recommendations)
	g.GET("/performance", h.Performance)
	g.GET("/weights", h.Weights)
	g.GET("/outcomes", h.Outcomes)
	e.GET("/health", h.Health)
}

func (h *CouncilHandler) Recommendations(c echo.Context) error {
	req := &models.RecommendationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	recs, err := h.recs.Latest(c.Request().Context(), req.Asset, req.Limit)
	if err != nil {
		h.logger.Error("recommendations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, recs)
}

// Performance returns one bot's record when bot_id is given, the whole
// roster otherwise.
func (h *CouncilHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.BotID != "" {
		perf, ok := h.tracker.Performance(req.BotID)
		if !ok {
			return xhttp.NotFoundResponse(c, "unknown bot "+req.BotID)
		}
		return xhttp.SuccessResponse(c, perf)
	}

	all := h.tracker.All()
	sort.Slice(all, func(i, j int) bool { return all[i].BotID < all[j].BotID })
	return xhttp.SuccessResponse(c, all)
}

func (h *CouncilHandler) Weights(c echo.Context) error {
	snap := h.opt.Current()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"snapshot": snap,
		"states":   h.opt.States(),
	})
}

func (h *CouncilHandler) Outcomes(c echo.Context) error {
	req := &models.OutcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	events, err := h.outcomes.ByBot(c.Request().Context(), req.BotID, req.Limit)
	if err != nil {
		h.logger.Error("outcomes query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, events)
}

func (h *CouncilHandler) Health(c echo.Context) error {
	if err := h.recs.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
