package handlers

import (
	"net/http"
	"os"

	"github.com/patrickcap/exploronomics/indicators"
	"github.com/patrickcap/exploronomics/logging"
)

// IndicatorHandler serves series from the indicators CSV
type IndicatorHandler struct {
	path string
}

// NewIndicatorHandler creates a handler reading the CSV at path
func NewIndicatorHandler(path string) *IndicatorHandler {
	return &IndicatorHandler{path: path}
}

// CountryData handles GET /api/country-data?country=NAME
func (h *IndicatorHandler) CountryData(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "Country parameter is required")
		return
	}

	f, err := os.Open(h.path)
	if err != nil {
		logging.Error("api", "Failed to open indicators file", err, map[string]interface{}{"path": h.path})
		writeError(w, http.StatusInternalServerError, CodeInternalError, "Error reading data file")
		return
	}
	defer f.Close()

	series, err := indicators.CountrySeries(f, country)
	if err != nil {
		logging.Error("api", "Failed to read indicators file", err, map[string]interface{}{"path": h.path})
		writeError(w, http.StatusInternalServerError, CodeInternalError, "Error reading data file")
		return
	}

	if len(series) == 0 {
		writeError(w, http.StatusNotFound, CodeNotFound, "No data found for the specified country")
		return
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"country": country,
		"series":  series,
	})
}
