package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "nftgrab"

// Workspace represents the managed data directory for nftgrab
type Workspace struct {
	RootPath    string
	ImagesPath  string
	ExportsPath string
	ReportsPath string
	LogsPath    string
	ConfigPath  string
}

// New creates a new Workspace instance with XDG-compliant paths
func New() (*Workspace, error) {
	rootPath, rootErr := getDataRoot()
	configPath, configErr := getConfigPath()
	if rootErr != nil {
		return nil, fmt.Errorf("failed to determine data root: %w", rootErr)
	}
	if configErr != nil {
		return nil, fmt.Errorf("failed to determine config path: %w", configErr)
	}

	return NewAt(rootPath, configPath), nil
}

// NewAt creates a workspace rooted at an explicit directory
func NewAt(rootPath, configPath string) *Workspace {
	return &Workspace{
		RootPath:    rootPath,
		ImagesPath:  filepath.Join(rootPath, "images"),
		ExportsPath: filepath.Join(rootPath, "exports"),
		ReportsPath: filepath.Join(rootPath, "reports"),
		LogsPath:    filepath.Join(rootPath, "logs"),
		ConfigPath:  configPath,
	}
}

// getDataRoot uses XDG_DATA_HOME on Unix and AppData on Windows
func getDataRoot() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appName), nil
	}

	return filepath.Join(homeDir, ".local", "share", appName), nil
}

func getConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appName+"-config", "config.yaml"), nil
	}

	return filepath.Join(homeDir, ".config", appName, "config.yaml"), nil
}

// Initialize creates the directory structure if it doesn't exist
func (w *Workspace) Initialize() error {
	directories := []string{
		w.RootPath,
		w.ImagesPath,
		w.ExportsPath,
		w.ReportsPath,
		w.LogsPath,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Exists checks if the workspace has been initialized
func (w *Workspace) Exists() bool {
	info, err := os.Stat(w.RootPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// DatabasePath returns the run history database file
func (w *Workspace) DatabasePath() string {
	return filepath.Join(w.RootPath, appName+".db")
}

// LogPath returns the rotating log file
func (w *Workspace) LogPath() string {
	return filepath.Join(w.LogsPath, appName+".log")
}

// DefaultImageDir returns the download directory used when none is configured
func (w *Workspace) DefaultImageDir(slug string) string {
	return filepath.Join(w.ImagesPath, safeName(slug))
}

// DefaultExportPath returns the CSV path used when none is given
func (w *Workspace) DefaultExportPath(slug string) string {
	return filepath.Join(w.ExportsPath, safeName(slug)+".csv")
}

// GetReportPath returns the full path for a report file
func (w *Workspace) GetReportPath(filename string) string {
	return filepath.Join(w.ReportsPath, filename)
}

// CleanReports removes all generated reports
func (w *Workspace) CleanReports() error {
	entries, err := os.ReadDir(w.ReportsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read reports directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(w.ReportsPath, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	return nil
}

// safeName keeps slugs from escaping their parent directory
func safeName(slug string) string {
	slug = strings.TrimSpace(slug)
	slug = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(slug)
	if slug == "" {
		return "collection"
	}
	return slug
}
