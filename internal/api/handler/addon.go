package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/addonpulse/addonpulse/internal/addon"
	"github.com/addonpulse/addonpulse/internal/api/models"
	"github.com/addonpulse/addonpulse/internal/api/response"
)

// AddonHandler handles addon endpoints.
type AddonHandler struct {
	service *addon.Service
	logger  zerolog.Logger
}

// NewAddonHandler creates a new AddonHandler.
func NewAddonHandler(service *addon.Service, logger zerolog.Logger) *AddonHandler {
	return &AddonHandler{service: service, logger: logger}
}

// ListAddons handles GET /v1/addons - list installed addons.
func (h *AddonHandler) ListAddons(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// InstallAddon handles POST /v1/addons - install a new addon.
func (h *AddonHandler) InstallAddon(w http.ResponseWriter, r *http.Request) {
	var input models.AddonCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.service.Install(r.Context(), &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/addons/%s", result.ID)
	response.Created(w, r, location, result)
}

// GetAddon handles GET /v1/addons/{addonId} - get an installed addon.
func (h *AddonHandler) GetAddon(w http.ResponseWriter, r *http.Request) {
	addonID := chi.URLParam(r, "addonId")
	if addonID == "" {
		response.BadRequest(w, r, "addonId is required", nil)
		return
	}

	result, err := h.service.Get(r.Context(), addonID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// UpdateAddon handles PUT /v1/addons/{addonId} - update an installed addon.
func (h *AddonHandler) UpdateAddon(w http.ResponseWriter, r *http.Request) {
	addonID := chi.URLParam(r, "addonId")
	if addonID == "" {
		response.BadRequest(w, r, "addonId is required", nil)
		return
	}

	var input models.AddonUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.service.Update(r.Context(), addonID, &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// DeleteAddon handles DELETE /v1/addons/{addonId} - uninstall an addon.
func (h *AddonHandler) DeleteAddon(w http.ResponseWriter, r *http.Request) {
	addonID := chi.URLParam(r, "addonId")
	if addonID == "" {
		response.BadRequest(w, r, "addonId is required", nil)
		return
	}

	if err := h.service.Delete(r.Context(), addonID); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// BulkSaveAddons handles PUT /v1/addons - replace the whole collection.
func (h *AddonHandler) BulkSaveAddons(w http.ResponseWriter, r *http.Request) {
	var input models.AddonBulkSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.service.BulkSave(r.Context(), &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// ReorderAddons handles POST /v1/addons:reorder - reorder the addon list.
func (h *AddonHandler) ReorderAddons(w http.ResponseWriter, r *http.Request) {
	var input models.AddonReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.service.Reorder(r.Context(), input.IDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// ProtectAddon handles POST /v1/addons/{addonId}:protect - toggle delete protection.
func (h *AddonHandler) ProtectAddon(w http.ResponseWriter, r *http.Request) {
	addonID := chi.URLParam(r, "addonId")
	if addonID == "" {
		response.BadRequest(w, r, "addonId is required", nil)
		return
	}

	var input models.AddonProtectRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.service.SetProtected(r.Context(), addonID, input.Protected)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// CheckAddons handles POST /v1/addons:check - run a health sweep over the
// whole collection and return the refreshed list.
func (h *AddonHandler) CheckAddons(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With().Str("handler", "check_addons").Logger()

	result, err := h.service.CheckAll(r.Context(), func(completed, total int) {
		logger.Debug().Int("completed", completed).Int("total", total).Msg("health sweep progress")
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.AddonCheckResponse{
		Checked: len(result.Items),
		Items:   result.Items,
	})
}

// VerifyAddon handles POST /v1/addons/{addonId}:verify - functional probe.
func (h *AddonHandler) VerifyAddon(w http.ResponseWriter, r *http.Request) {
	addonID := chi.URLParam(r, "addonId")
	if addonID == "" {
		response.BadRequest(w, r, "addonId is required", nil)
		return
	}

	result, err := h.service.Verify(r.Context(), addonID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// writeError maps service errors to problem responses.
func (h *AddonHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *addon.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, r, "validation failed", vErr.Errors)
	case errors.Is(err, addon.ErrAddonNotFound):
		response.NotFound(w, r, "addon not found")
	case errors.Is(err, addon.ErrProtected):
		response.Conflict(w, r, "addon is protected")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("addon request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
