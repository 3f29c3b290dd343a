package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	agentcore "github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/mohammad-safakhou/scout/internal/runtime"
	"go.uber.org/zap"
)

type AnswerHandler struct {
	Answerer Answerer
	Timeout  time.Duration
	Logger   *zap.Logger
}

func (h *AnswerHandler) Register(g *echo.Group) {
	g.POST("/answer", h.answer)
}

// Answer
//
//	@Summary		Research a query
//	@Description	Runs the plan, retrieve, integrate and assess loop until the answer passes review or the iteration budget is spent
//	@Tags			answer
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AnswerRequest	true	"Query"
//	@Success		200		{object}	AnswerResponse
//	@Failure		400		{object}	HTTPError
//	@Failure		409		{object}	HTTPError
//	@Failure		500		{object}	HTTPError
//	@Failure		504		{object}	HTTPError
//	@Router			/api/answer [post]
func (h *AnswerHandler) answer(c echo.Context) error {
	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	if sub, ok := runtime.SubjectFromContext(ctx); ok && h.Logger != nil {
		h.Logger.Info("answer requested", zap.String("subject", sub))
	}

	res, err := h.Answerer.Run(ctx, query)
	if errors.Is(err, agentcore.ErrSessionActive) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := AnswerResponse{
		SessionID:    res.SessionID,
		Answer:       res.Answer,
		Accepted:     res.Accepted,
		Iterations:   res.Iterations,
		VisitedSites: res.VisitedSites,
	}
	if !res.Accepted {
		resp.Reason = res.Assessment.Reason
	}
	if resp.VisitedSites == nil {
		resp.VisitedSites = []string{}
	}
	return c.JSON(http.StatusOK, resp)
}
