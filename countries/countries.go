package countries

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/patrickcap/exploronomics/errors"
	"github.com/patrickcap/exploronomics/logging"
)

// TableName is the table the seeder writes to and the API reads from
const TableName = "countries"

// Country is one row of the countries table
type Country struct {
	Code           string  `yaml:"code" json:"code"`
	Name           string  `yaml:"name" json:"name"`
	Population     int64   `yaml:"population" json:"population"`
	GDP            float64 `yaml:"gdp" json:"gdp"`
	DataReferences string  `yaml:"data_references" json:"data_references"`
}

// CreateSchema creates the countries table. The seeder never calls this;
// it expects the table to exist already.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS countries (
		code TEXT PRIMARY KEY,
		name TEXT,
		population INTEGER,
		gdp REAL,
		data_references TEXT
	);`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(errors.ErrDatabaseOperationFailed, err, "failed to create countries table")
	}
	return nil
}

// InsertCountries inserts all records in a single transaction. Either every
// record is stored or, on any failure, none are. The statement is prepared
// even for an empty batch so a missing table is still reported.
func InsertCountries(ctx context.Context, db *sql.DB, records []Country) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "failed to begin transaction")
	}
	defer tx.Rollback() // No-op once committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO countries (code, name, population, gdp, data_references)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, classify(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, c := range records {
		if _, err := stmt.ExecContext(ctx, c.Code, c.Name, c.Population, c.GDP, c.DataReferences); err != nil {
			appErr := classify(err, "failed to insert country '%s'", c.Code)
			return 0, appErr.WithContext("code", c.Code).WithContext("index", i)
		}
		logging.Debug("countries", "Inserted country", map[string]interface{}{"code": c.Code})
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(err, "failed to commit transaction")
	}

	return len(records), nil
}

// GetCountry returns the country with the given code
func GetCountry(ctx context.Context, db *sql.DB, code string) (*Country, error) {
	var c Country
	var name, refs sql.NullString
	var population sql.NullInt64
	var gdp sql.NullFloat64

	err := db.QueryRowContext(ctx, "SELECT code, name, population, gdp, data_references FROM countries WHERE code = ?", code).
		Scan(&c.Code, &name, &population, &gdp, &refs)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("country", code)
	}
	if err != nil {
		return nil, classify(err, "failed to query country '%s'", code)
	}

	c.Name, c.Population, c.GDP, c.DataReferences = name.String, population.Int64, gdp.Float64, refs.String
	return &c, nil
}

// ListCountries returns every stored country ordered by code
func ListCountries(ctx context.Context, db *sql.DB) ([]Country, error) {
	rows, err := db.QueryContext(ctx, "SELECT code, name, population, gdp, data_references FROM countries ORDER BY code")
	if err != nil {
		return nil, classify(err, "failed to query countries")
	}
	defer rows.Close()

	var result []Country
	for rows.Next() {
		var c Country
		var name, refs sql.NullString
		var population sql.NullInt64
		var gdp sql.NullFloat64
		if err := rows.Scan(&c.Code, &name, &population, &gdp, &refs); err != nil {
			return nil, classify(err, "failed to scan country")
		}
		c.Name, c.Population, c.GDP, c.DataReferences = name.String, population.Int64, gdp.Float64, refs.String
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate countries")
	}

	return result, nil
}

// CountCountries returns the number of rows in the countries table
func CountCountries(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM countries").Scan(&count); err != nil {
		return 0, classify(err, "failed to count countries")
	}
	return count, nil
}

// classify maps driver errors onto the error taxonomy
func classify(err error, format string, args ...interface{}) *errors.AppError {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrConstraint:
			return errors.Wrapf(errors.ErrConstraintViolation, err, format, args...)
		case sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt:
			return errors.Wrapf(errors.ErrDatabaseCorrupted, err, format, args...)
		case isSchemaMessage(sqliteErr.Error()):
			return errors.Wrapf(errors.ErrSchema, err, format, args...).WithContext("table", TableName)
		}
	}
	if isSchemaMessage(err.Error()) {
		return errors.Wrapf(errors.ErrSchema, err, format, args...).WithContext("table", TableName)
	}
	return errors.Wrapf(errors.ErrDatabaseOperationFailed, err, format, args...)
}

func isSchemaMessage(msg string) bool {
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column named") ||
		strings.Contains(msg, "no such column")
}
