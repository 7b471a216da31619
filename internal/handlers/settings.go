package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/mbot/internal/settings"
)

// SettingsHandler manages runtime settings and stored completion credentials.
type SettingsHandler struct {
	service *settings.Service
	logger  *slog.Logger
}

func NewSettingsHandler(log *slog.Logger, service *settings.Service) *SettingsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "settings")),
	}
}

func (h *SettingsHandler) Register(e *echo.Echo) {
	group := e.Group("/settings")
	group.GET("", h.List)
	group.GET("/:name", h.Get)
	group.PUT("/:name", h.Upsert)
	group.DELETE("/:name", h.Delete)

	creds := e.Group("/credentials")
	creds.GET("", h.ListCredentials)
	creds.POST("", h.CreateCredential)
	creds.DELETE("/:id", h.DeleteCredential)
}

// List godoc
// @Summary List settings
// @Tags settings
// @Success 200 {array} settings.Setting
// @Router /settings [get]
func (h *SettingsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return settingsError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *SettingsHandler) Get(c echo.Context) error {
	item, err := h.service.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return settingsError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// Upsert godoc
// @Summary Create or replace a setting
// @Tags settings
// @Param name path string true "Setting name"
// @Param payload body settings.UpsertSettingRequest true "Value"
// @Success 200 {object} settings.Setting
// @Failure 400 {object} ErrorResponse
// @Router /settings/{name} [put]
func (h *SettingsHandler) Upsert(c echo.Context) error {
	var req settings.UpsertSettingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	item, err := h.service.Put(c.Request().Context(), c.Param("name"), req.Value)
	if err != nil {
		return settingsError(err)
	}
	h.logger.Info("setting updated", slog.String("name", item.Name))
	return c.JSON(http.StatusOK, item)
}

func (h *SettingsHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return settingsError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCredentials godoc
// @Summary List stored completion credentials (masked)
// @Tags credentials
// @Success 200 {array} settings.CredentialView
// @Router /credentials [get]
func (h *SettingsHandler) ListCredentials(c echo.Context) error {
	items, err := h.service.ListCredentialViews(c.Request().Context())
	if err != nil {
		return settingsError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// CreateCredential godoc
// @Summary Add a completion credential
// @Tags credentials
// @Param payload body settings.CreateCredentialRequest true "Credential"
// @Success 201 {object} settings.CredentialView
// @Failure 400 {object} ErrorResponse
// @Router /credentials [post]
func (h *SettingsHandler) CreateCredential(c echo.Context) error {
	var req settings.CreateCredentialRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	item, err := h.service.CreateCredential(c.Request().Context(), req)
	if err != nil {
		return settingsError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *SettingsHandler) DeleteCredential(c echo.Context) error {
	if err := h.service.DeleteCredential(c.Request().Context(), c.Param("id")); err != nil {
		return settingsError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func settingsError(err error) error {
	switch {
	case errors.Is(err, settings.ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, settings.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
