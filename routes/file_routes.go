package routes

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/logger"
	"github.com/aslaburda/aslp_backend/models"
)

// iconCacheControl lets browsers reuse an icon for a day but revalidate
// afterwards, since a re-uploaded icon keeps its path.
const iconCacheControl = "public, max-age=86400, must-revalidate"

// RegisterFileRoutes serves uploaded app icons.
func RegisterFileRoutes(e *echo.Echo, uploadsDir string) {
	e.GET("/uploads/*", ServeFile(uploadsDir))
}

func fileError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.Response{Status: status, Message: message})
}

// ServeFile serves a regular file under root. Traversal and directories are refused.
func ServeFile(root string) echo.HandlerFunc {
	return func(c echo.Context) error {
		rel := c.Param("*")
		if rel == "" {
			return fileError(c, http.StatusNotFound, "File not found")
		}
		if strings.Contains(rel, "..") {
			return fileError(c, http.StatusForbidden, "Access denied")
		}
		fullPath := filepath.Join(root, filepath.Clean("/"+rel))

		info, err := os.Stat(fullPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return fileError(c, http.StatusNotFound, "File not found")
		case err != nil:
			logger.FromEcho(c).Error("stat upload failed", zap.String("path", fullPath), zap.Error(err))
			return fileError(c, http.StatusInternalServerError, "Error accessing file")
		case !info.Mode().IsRegular():
			return fileError(c, http.StatusForbidden, "Access denied")
		}

		c.Response().Header().Set(echo.HeaderCacheControl, iconCacheControl)
		return c.File(fullPath)
	}
}
