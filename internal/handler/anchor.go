package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/anchor"
	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
)

// AnchorHandler exposes the daily batch anchoring: an explicit run trigger
// and the list of recorded batches.
type AnchorHandler struct {
	Anchors *anchor.Service
	Repo    *repository.AnchorRepo
}

type runAnchorReq struct {
	Day string `json:"day"` // YYYY-MM-DD, defaults to yesterday UTC
}

type anchorPart struct {
	Batch        uint64 `json:"batch"`
	Root         string `json:"root"`
	Day          string `json:"day"`
	PaymentCount int    `json:"payment_count"`
}

func toAnchorPart(a model.Anchor) anchorPart {
	return anchorPart{
		Batch:        a.ID,
		Root:         a.Root,
		Day:          a.Day.UTC().Format("2006-01-02"),
		PaymentCount: a.PaymentCount,
	}
}

// Run handles POST /v1/anchors/run. Without a day in the body it anchors
// yesterday, the most recent fully closed day.
func (h *AnchorHandler) Run(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req runAnchorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	day := time.Now().UTC().AddDate(0, 0, -1)
	if req.Day != "" {
		var err error
		day, err = time.ParseInLocation("2006-01-02", req.Day, time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	a, err := h.Anchors.Run(ctx, day)
	if err != nil {
		switch {
		case errors.Is(err, anchor.ErrNoPayments):
			return c.JSON(http.StatusOK, echo.Map{"anchored": false, "message": "no confirmed payments for day"})
		case errors.Is(err, repository.ErrDayAnchored):
			return c.JSON(http.StatusConflict, echo.Map{"error": "day already anchored"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not anchor day"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"anchored": true, "anchor": toAnchorPart(a)})
}

// List handles GET /v1/anchors.
func (h *AnchorHandler) List(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	anchors, err := h.Repo.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list anchors"})
	}
	out := make([]anchorPart, 0, len(anchors))
	for _, a := range anchors {
		out = append(out, toAnchorPart(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"anchors": out})
}
