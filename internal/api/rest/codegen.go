package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/natheelic/iot-device-hub/internal/types"
)

// GET /api/v1/devices/:id/code?template=
// Returns ready-to-flash firmware text. Generation is total: an unknown
// template or family resolves to a default instead of failing, and the
// resolved choice is reported in response headers.
func (s *Server) generateCode(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	profile, err := s.store.GetProfile(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("CODEGEN_404", "Device not found", id))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CODEGEN_500", "Failed to load profile", err.Error()))
		return
	}

	selector := c.Query("template")
	if selector == "" {
		selector = profile.ProgramTemplate
	}

	family, template := s.generator.Resolve(profile.DeviceType, selector)
	code := s.generator.Generate(*profile, selector)

	c.Header("X-Device-Name", profile.DeviceName)
	c.Header("X-Template-Family", string(family))
	c.Header("X-Template-Name", template)
	c.Data(http.StatusOK, "text/x-python; charset=utf-8", []byte(code))
}

// GET /api/v1/devices/:id/uploader?template=
// Returns the companion deployment script with the firmware embedded.
func (s *Server) generateUploader(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	profile, err := s.store.GetProfile(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("CODEGEN_404", "Device not found", id))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CODEGEN_500", "Failed to load profile", err.Error()))
		return
	}

	selector := c.Query("template")
	if selector == "" {
		selector = profile.ProgramTemplate
	}

	firmware := s.generator.Generate(*profile, selector)
	script := s.generator.GenerateUploader(*profile, firmware)

	c.Header("X-Device-Name", profile.DeviceName)
	c.Data(http.StatusOK, "text/x-python; charset=utf-8", []byte(script))
}

// GET /api/v1/templates
func (s *Server) listTemplates(c *gin.Context) {
	templates, err := s.store.ListTemplates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("TEMPLATE_500", "Failed to list templates", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     len(templates),
		"templates": templates,
	})
}
