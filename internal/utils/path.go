package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppName names the config directory and fallback locations.
const AppName = "battserve"

// PathResolver resolves catalog and config locations relative to the binary
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}

	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	configDir, err := ConfigDir()
	if err != nil {
		configDir = filepath.Dir(execPath)
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      configDir,
	}

	log.Debugf("PathResolver initialized: exec=%s, configDir=%s", execPath, pr.configDir)
	return pr, nil
}

// ConfigDir returns the directory holding config.toml and the cart file.
// The first writable platform location wins: $XDG_CONFIG_HOME or ~/.config
// on linux, %APPDATA% on windows, ~/.config then ~/Library/Application
// Support on macOS. The executable dir is the last resort.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return GetExecutableDir()
	}
	for _, dir := range configDirCandidates(homeDir) {
		if CheckDirStatus(dir).Writable {
			return dir, nil
		}
	}
	execDir, err := GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

func configDirCandidates(homeDir string) []string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return []string{filepath.Join(appData, AppName)}
		}
		return []string{filepath.Join(homeDir, "AppData", "Roaming", AppName)}
	case "darwin":
		return []string{
			filepath.Join(homeDir, ".config", AppName),
			filepath.Join(homeDir, "Library", "Application Support", AppName),
		}
	default:
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return []string{filepath.Join(configHome, AppName)}
		}
		return []string{filepath.Join(homeDir, ".config", AppName)}
	}
}

// GetCatalogPath resolves the catalog file.
// It tries, in order: the path as given, relative to the executable,
// relative to the working directory, then <dir>/data/<base> next to the
// executable and in the config dir.
func (pr *PathResolver) GetCatalogPath(userSpecifiedPath string) (string, error) {
	candidates := pr.catalogCandidates(userSpecifiedPath)
	for _, path := range candidates {
		if isRegularFile(path) {
			log.Debugf("Found catalog file: %s", path)
			return path, nil
		}
		log.Debugf("Catalog candidate not found: %s", path)
	}
	return "", &os.PathError{Op: "resolve", Path: userSpecifiedPath, Err: os.ErrNotExist}
}

func (pr *PathResolver) catalogCandidates(userSpecifiedPath string) []string {
	if filepath.IsAbs(userSpecifiedPath) {
		return []string{userSpecifiedPath}
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, userSpecifiedPath))
	}
	candidates = append(candidates, filepath.Join(pr.executableDir, userSpecifiedPath))

	base := filepath.Base(userSpecifiedPath)
	candidates = append(candidates,
		filepath.Join(pr.executableDir, "data", base),
		filepath.Join(filepath.Dir(pr.executableDir), "data", base),
		filepath.Join(pr.configDir, "data", base),
	)
	return candidates
}

// GetConfigPath returns the full path for a file in the config dir.
// It falls back to ~/.battserve, the temp dir, then the executable dir
// when the config dir is not writable.
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if pr.ensureConfigDir(pr.configDir) {
		return filepath.Join(pr.configDir, filename), nil
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, "."+AppName),
		filepath.Join(os.TempDir(), AppName),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if pr.ensureConfigDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// ensureConfigDir creates the directory if it doesn't exist and tests writability
func (pr *PathResolver) ensureConfigDir(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Debugf("Cannot create config directory %s: %v", dir, err)
		return false
	}
	return testWriteAccess(dir)
}

// GetRuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	cwd, _ := os.Getwd()
	return map[string]string{
		"executable_path": pr.executablePath,
		"executable_dir":  pr.executableDir,
		"current_dir":     cwd,
		"home_dir":        pr.homeDir,
		"config_dir":      pr.configDir,
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
	}
}

func isRegularFile(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Mode().IsRegular()
}
