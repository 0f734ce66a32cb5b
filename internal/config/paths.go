package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the directories the dashboard reads from and writes to.
// Everything is resolved relative to the executable, never the working directory.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	CaptureDir    string
	LogsDir       string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths builds the directory layout below baseDir:
//
//	baseDir/
//	  ├── data/           (datasets, countries-aggregated.csv)
//	  │   ├── exports/    (snapshot CSV / xlsx exports)
//	  │   └── captures/   (frame screenshots)
//	  └── logs/
func NewPaths(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		CaptureDir:    filepath.Join(dataDir, "captures"),
		LogsDir:       filepath.Join(baseDir, "logs"),
	}
}

// EnsureDirectories creates the base directories if they are missing
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.CaptureDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// Resolve maps a configured location to something loadable.
// URLs and absolute paths are returned untouched. Relative paths are tried
// against the working directory first and then against the executable directory.
func (p *Paths) Resolve(location string) string {
	if location == "" || IsURL(location) || filepath.IsAbs(location) {
		return location
	}
	if FileExists(location) {
		return location
	}
	return filepath.Join(p.ExecutableDir, location)
}

// GetExportPath returns a path inside the exports directory
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetCapturePath returns a path inside the captures directory
func (p *Paths) GetCapturePath(filename string) string {
	return filepath.Join(p.CaptureDir, filename)
}

// GetLogPath returns a path inside the logs directory
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved directories once at startup
func (p *Paths) LogPathResolution() {
	slog.Default().Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("captures", p.CaptureDir),
			slog.String("logs", p.LogsDir),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// IsURL reports whether location is an http(s) URL
func IsURL(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
