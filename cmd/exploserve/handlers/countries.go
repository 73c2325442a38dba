package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/patrickcap/exploronomics/countries"
	"github.com/patrickcap/exploronomics/database"
	"github.com/patrickcap/exploronomics/errors"
	"github.com/patrickcap/exploronomics/logging"
)

// CountryHandler serves rows of the countries table
type CountryHandler struct {
	dbPath string
}

// NewCountryHandler creates a handler reading the store at dbPath.
// The store is opened per request and closed before the response is written.
func NewCountryHandler(dbPath string) *CountryHandler {
	return &CountryHandler{dbPath: dbPath}
}

// GetCountry handles GET /api/country/{code}
func (h *CountryHandler) GetCountry(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var country *countries.Country
	err := database.WithDB(r.Context(), h.dbPath, func(db *sql.DB) error {
		var err error
		country, err = countries.GetCountry(r.Context(), db, code)
		return err
	})
	if err != nil {
		if errors.IsErrorType(err, errors.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "Country not found")
			return
		}
		logging.Error("api", "Failed to load country", err, map[string]interface{}{"code": code})
		writeError(w, http.StatusInternalServerError, CodeInternalError, "Failed to load country")
		return
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"country": country,
	})
}

// ListCountries handles GET /api/countries
func (h *CountryHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	var list []countries.Country
	err := database.WithDB(r.Context(), h.dbPath, func(db *sql.DB) error {
		var err error
		list, err = countries.ListCountries(r.Context(), db)
		return err
	})
	if err != nil {
		logging.Error("api", "Failed to list countries", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, "Failed to list countries")
		return
	}

	if list == nil {
		list = []countries.Country{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"countries": list,
	})
}
