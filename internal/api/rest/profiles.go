package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/natheelic/iot-device-hub/internal/storage"
	"github.com/natheelic/iot-device-hub/internal/types"
	"go.uber.org/zap"
)

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// POST /api/v1/devices
func (s *Server) createProfile(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PROFILE_400", "Failed to read request body", err.Error()))
		return
	}

	if err := s.validator.Validate(body); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PROFILE_400", "Invalid profile payload", err.Error()))
		return
	}

	var req struct {
		DeviceName      string             `json:"device_name"`
		DeviceType      string             `json:"device_type"`
		Description     string             `json:"description"`
		WifiSSID        string             `json:"wifi_ssid"`
		WifiPassword    string             `json:"wifi_password"`
		PinConfig       types.PinConfig    `json:"pin_config"`
		SensorConfig    types.SensorConfig `json:"sensor_config"`
		ProgramTemplate string             `json:"program_template"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PROFILE_400", "Invalid profile payload", err.Error()))
		return
	}

	profile := types.DeviceProfile{
		DeviceName:      req.DeviceName,
		DeviceType:      types.HardwareFamily(req.DeviceType),
		Description:     req.Description,
		WifiSSID:        req.WifiSSID,
		WifiPassword:    req.WifiPassword,
		PinConfig:       req.PinConfig,
		SensorConfig:    req.SensorConfig,
		ProgramTemplate: req.ProgramTemplate,
	}

	id, err := s.store.CreateProfile(c.Request.Context(), &profile)
	if err != nil {
		if errors.Is(err, storage.ErrNameTaken) {
			c.JSON(http.StatusConflict, types.NewErrorResponse("PROFILE_409", "Device name already in use", req.DeviceName))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PROFILE_500", "Failed to create profile", err.Error()))
		return
	}

	// Enabled capabilities without a pin assignment are allowed; surface
	// them so the operator can fix the configuration.
	warnings := profile.SensorConfig.MissingPins(profile.PinConfig)
	if len(warnings) > 0 {
		s.logger.Warn("Profile created with unassigned sensor pins",
			zap.String("device_name", profile.DeviceName),
			zap.Strings("missing_pins", warnings))
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       id,
		"profile":  profile,
		"warnings": warnings,
	})
}

// GET /api/v1/devices?all=true
func (s *Server) listProfiles(c *gin.Context) {
	activeOnly := c.Query("all") != "true"

	profiles, err := s.store.ListProfiles(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PROFILE_500", "Failed to list profiles", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(profiles),
		"devices": profiles,
	})
}

// GET /api/v1/devices/:id
func (s *Server) getProfile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	profile, err := s.store.GetProfile(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("PROFILE_404", "Device not found", id))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PROFILE_500", "Failed to load profile", err.Error()))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GET /api/v1/devices/by-name/:name
// Lookup by the unique active device name. Soft-deleted profiles do not
// resolve here; use the id route for those.
func (s *Server) getProfileByName(c *gin.Context) {
	name := c.Param("name")

	profile, err := s.store.GetProfileByName(c.Request.Context(), name)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("PROFILE_404", "Device not found", name))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PROFILE_500", "Failed to load profile", err.Error()))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// PATCH /api/v1/devices/:id
// Partial update: absent fields keep their stored value; device_name and
// device_type are immutable and silently ignored if sent.
func (s *Server) updateProfile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var upd types.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PROFILE_400", "Invalid update payload", err.Error()))
		return
	}

	if err := s.store.UpdateProfile(c.Request.Context(), id, upd); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("PROFILE_404", "Device not found", id))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PROFILE_500", "Failed to update profile", err.Error()))
		return
	}

	profile, err := s.store.GetProfile(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PROFILE_500", "Failed to reload profile", err.Error()))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// DELETE /api/v1/devices/:id
// Soft delete: the profile disappears from active listings but stays
// retrievable by id.
func (s *Server) deleteProfile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.store.DeleteProfile(c.Request.Context(), id); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("PROFILE_404", "Device not found", id))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PROFILE_500", "Failed to delete profile", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Device deactivated successfully",
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PROFILE_400", "Invalid device id", c.Param("id")))
		return 0, false
	}
	return id, true
}
