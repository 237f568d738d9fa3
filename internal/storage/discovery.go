package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectDir is the per-project directory holding the database, config and lock
const ProjectDir = ".wishlist"

// EnvDBPath overrides database discovery when set
const EnvDBPath = "WISHLIST_DB_PATH"

// DiscoverDatabase finds the database for the current directory.
//
// Resolution order:
//  1. WISHLIST_DB_PATH environment variable
//  2. The first .wishlist/*.db in the current working directory
//
// Parent directories are not searched.
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv(EnvDBPath); dbPath != "" {
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return discoverDatabaseInDir(dir)
}

func discoverDatabaseInDir(dir string) (string, error) {
	projectDir := filepath.Join(dir, ProjectDir)

	if info, err := os.Stat(projectDir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(projectDir)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
					absPath, err := filepath.Abs(filepath.Join(projectDir, entry.Name()))
					if err != nil {
						return "", fmt.Errorf("failed to get absolute path: %w", err)
					}
					return absPath, nil
				}
			}
		}
	}

	return "", fmt.Errorf(
		"no %s/*.db found in %s\n"+
			"  Run 'wishlist init' to create a tracker in this directory\n"+
			"  Or use --db flag to specify database path explicitly",
		ProjectDir, dir)
}

// InitProject creates the .wishlist directory under dir and returns the database
// path for name. It fails if that database already exists.
func InitProject(dir, name string) (string, error) {
	if name == "" {
		name = "wishlist"
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid database name: %q", name)
	}

	projectDir := filepath.Join(dir, ProjectDir)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", projectDir, err)
	}

	dbPath := filepath.Join(projectDir, strings.TrimSuffix(name, ".db")+".db")
	if _, err := os.Stat(dbPath); err == nil {
		return "", fmt.Errorf("database already exists: %s", dbPath)
	}
	return dbPath, nil
}

// GetProjectRoot returns the directory containing the .wishlist directory
func GetProjectRoot(dbPath string) (string, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	dbDir := filepath.Dir(absPath)
	if filepath.Base(dbDir) != ProjectDir {
		return "", fmt.Errorf("database must be in a %s/ directory, got: %s", ProjectDir, dbPath)
	}

	return filepath.Dir(dbDir), nil
}
