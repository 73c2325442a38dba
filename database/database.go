package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/patrickcap/exploronomics/errors"
	"github.com/patrickcap/exploronomics/logging"
)

const (
	driverName    = "sqlite3"
	backupFileExt = ".bak"
)

// Open opens an existing SQLite store. A missing file is reported as
// ErrDatabaseNotFound rather than silently creating an empty database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrDatabaseNotFound, err, "database '%s' does not exist", path).
				WithContext("path", path)
		}
		return nil, errors.NewDatabaseConnectionError(err)
	}
	return open(ctx, path)
}

// Create opens the store at path, creating the file and its parent directory if needed
func Create(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrPermissionDenied, err, "failed to create database directory '%s'", dir)
		}
	}
	return open(ctx, path)
}

func open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewDatabaseConnectionError(err)
	}

	// One writer, one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewDatabaseConnectionError(err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.NewDatabaseConnectionError(err)
	}

	return db, nil
}

// WithDB opens the store at path, runs fn, and closes the connection on every
// exit path. A close failure is joined with the error returned by fn.
func WithDB(ctx context.Context, path string, fn func(*sql.DB) error) (err error) {
	db, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logging.Warn("database", "Failed to close database", map[string]interface{}{
				"path":  path,
				"error": closeErr.Error(),
			})
			err = stderrors.Join(err, errors.Wrap(errors.ErrDatabaseOperationFailed, closeErr, "failed to close database"))
		}
	}()

	return fn(db)
}

// CopyDatabaseFile performs a plain file copy of the database.
// The store must not be written to while the copy runs.
func CopyDatabaseFile(sourcePath string, destPath string) error {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("source database does not exist: %w", err)
	}
	if !sourceInfo.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", sourcePath)
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source database file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sourceInfo.Mode())
	if err != nil {
		return fmt.Errorf("failed to create destination database file: %w", err)
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return fmt.Errorf("failed to copy database file: %w", err)
	}

	return destFile.Close()
}

// Backup copies the store to <path>.<timestamp>.bak and keeps at most
// maxBackups such files, removing the oldest first. It returns the new
// backup path, or "" when there is no database to back up.
func Backup(path string, maxBackups int) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat database: %w", err)
	}

	logging.Debug("database", "Backing up database", map[string]interface{}{
		"path": path,
		"size": info.Size(),
	})

	backupPath := fmt.Sprintf("%s.%s%s", path, time.Now().Format("20060102-150405"), backupFileExt)
	if err := CopyDatabaseFile(path, backupPath); err != nil {
		return "", errors.Wrap(errors.ErrDatabaseOperationFailed, err, "failed to create database backup")
	}

	logging.Info("database", fmt.Sprintf("Existing database backed up to %s", backupPath))
	pruneOldBackups(path, maxBackups)
	return backupPath, nil
}

// ListBackups returns the backups of the store at path, oldest first
func ListBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), backupFileExt) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(backups)
	return backups, nil
}

func pruneOldBackups(path string, max int) {
	if max <= 0 {
		return
	}

	backups, err := ListBackups(path)
	if err != nil {
		logging.Warn("database", "Failed to list backups", map[string]interface{}{"error": err.Error()})
		return
	}

	if len(backups) <= max {
		return
	}

	for _, file := range backups[:len(backups)-max] {
		if err := os.Remove(file); err != nil {
			logging.Warn("database", fmt.Sprintf("Failed to remove old backup %s", file), map[string]interface{}{"error": err.Error()})
			continue
		}
		logging.Info("database", fmt.Sprintf("Removed old backup: %s", file))
	}
}

// VerifyDatabaseIntegrity checks that the database is valid and accessible
func VerifyDatabaseIntegrity(dbPath string) error {
	db, err := Open(context.Background(), dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var integrityCheck string
	err = db.QueryRow("PRAGMA integrity_check").Scan(&integrityCheck)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseCorrupted, err, "failed to run integrity check")
	}

	if integrityCheck != "ok" {
		return errors.Newf(errors.ErrDatabaseCorrupted, "database integrity check failed: %s", integrityCheck)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseCorrupted, err, "failed to query sqlite_master")
	}

	if count == 0 {
		return errors.New(errors.ErrSchema, "database contains no tables").WithContext("table", "countries")
	}

	return nil
}

// GetDatabaseInfo returns information about the database
func GetDatabaseInfo(dbPath string) (map[string]interface{}, error) {
	info := make(map[string]interface{})

	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabaseNotFound, err, "failed to stat database file '%s'", dbPath)
	}

	info["size"] = fileInfo.Size()
	info["modified"] = fileInfo.ModTime()
	info["permissions"] = fileInfo.Mode()

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return info, nil // Return file info even if we can't open the database
	}
	defer db.Close()

	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&tableCount)
	if err == nil {
		info["table_count"] = tableCount
	}

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err == nil {
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err == nil {
				tables = append(tables, name)
			}
		}
		info["tables"] = tables
	}

	var pageCount, pageSize int
	err = db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		info["page_count"] = pageCount
	}

	err = db.QueryRow("PRAGMA page_size").Scan(&pageSize)
	if err == nil {
		info["page_size"] = pageSize
	}

	return info, nil
}
