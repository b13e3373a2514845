package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
)

// ProfileHandler serves the user's displayable identity: the name, email
// and phone shown to counterparties on the confirmation page.
type ProfileHandler struct {
	Profiles *repository.ProfileRepo
}

type profileReq struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	PhoneE164 *string `json:"phone_e164"`
	ENSLabel  *string `json:"ens_label"`
	Currency  string  `json:"currency"`
}

type profilePart struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	PhoneE164 *string `json:"phone_e164"`
	ENSLabel  *string `json:"ens_label"`
	Currency  string  `json:"currency"`
}

var phoneE164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// Get handles GET /v1/profile. A user who never saved a profile gets an
// empty one back rather than a 404.
func (h *ProfileHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, profilePart{})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load profile"})
	}
	return c.JSON(http.StatusOK, profilePart{
		Name:      p.Name,
		Email:     p.Email,
		PhoneE164: p.PhoneE164,
		ENSLabel:  p.ENSLabel,
		Currency:  p.Currency,
	})
}

// Update handles PUT /v1/profile. Fields omitted from the body are cleared;
// the endpoint replaces the profile rather than patching it.
func (h *ProfileHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Email != nil {
		e := strings.TrimSpace(strings.ToLower(*req.Email))
		if e != "" && !strings.Contains(e, "@") {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
		}
		req.Email = &e
	}
	if req.PhoneE164 != nil && *req.PhoneE164 != "" && !phoneE164Pattern.MatchString(*req.PhoneE164) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone must be E.164, e.g. +525512345678"})
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if len(req.Currency) != 3 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "currency must be a 3-letter code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := model.Profile{
		UserID:    userID,
		Name:      req.Name,
		Email:     req.Email,
		PhoneE164: req.PhoneE164,
		ENSLabel:  req.ENSLabel,
		Currency:  req.Currency,
	}
	if err := h.Profiles.Upsert(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not save profile"})
	}
	return c.JSON(http.StatusOK, profilePart{
		Name:      p.Name,
		Email:     p.Email,
		PhoneE164: p.PhoneE164,
		ENSLabel:  p.ENSLabel,
		Currency:  p.Currency,
	})
}

// Missing handles GET /v1/profile/missing, listing the contact fields the
// user has not filled in yet.
func (h *ProfileHandler) Missing(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load profile"})
	}
	return c.JSON(http.StatusOK, echo.Map{"missing": p.MissingFields()})
}
