package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

// Simulations serves the raw files of the results directory, such as the
// HTML report the tool generates for every run. Directories are served by
// their index.html.
// GET /simulations/*
func (h *Handler) Simulations(c echo.Context) error {
	rel := c.Param("*")
	for _, elem := range strings.FieldsFunc(rel, isSeparator) {
		if elem == ".." {
			return c.JSON(http.StatusBadRequest, errorBody("invalid path"))
		}
	}

	name := filepath.Join(h.resultsDir, filepath.FromSlash(rel))
	info, err := os.Stat(name)
	if err == nil && info.IsDir() {
		name = filepath.Join(name, "index.html")
		info, err = os.Stat(name)
	}
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return c.JSON(http.StatusNotFound, errorBody("not found"))
	}
	if err != nil {
		h.logger.Error().Err(err).Str("path", rel).Msg("Failed to stat run file")
		return c.JSON(http.StatusInternalServerError, errorBody("failed to read file"))
	}

	f, err := os.Open(name)
	if err != nil {
		h.logger.Error().Err(err).Str("path", rel).Msg("Failed to open run file")
		return c.JSON(http.StatusInternalServerError, errorBody("failed to read file"))
	}
	defer f.Close()

	http.ServeContent(c.Response(), c.Request(), info.Name(), info.ModTime(), f)
	return nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
