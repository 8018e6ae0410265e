package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// DataDir returns the platform-appropriate writable data directory and creates it if missing.
func DataDir() string {
	dataDirOnce.Do(func() {
		dataDirPath = resolveDataDir()
		_ = os.MkdirAll(dataDirPath, 0o755)
	})
	return dataDirPath
}

// DataFile joins the data directory with the provided relative name.
func DataFile(name string) string {
	return filepath.Join(DataDir(), name)
}

// LibrariesDir returns the directory holding territory library sources and creates it if missing.
func LibrariesDir() string {
	dir := filepath.Join(DataDir(), "libraries")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// ReadDataFile reads a file from the data directory.
func ReadDataFile(name string) ([]byte, error) {
	return os.ReadFile(DataFile(name))
}

// WriteDataFile writes data to the data directory, ensuring the directory exists.
func WriteDataFile(name string, data []byte, perm os.FileMode) error {
	path := DataFile(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func resolveDataDir() string {
	if custom := os.Getenv("TERRASTUDIO_DATA_DIR"); custom != "" {
		return custom
	}

	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("APPDATA"); base != "" {
			return filepath.Join(base, "TerraStudio")
		}
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, "TerraStudio")
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support", "TerraStudio")
		}
	default: // Linux and others
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "TerraStudio")
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share", "TerraStudio")
		}
	}

	// Final fallback: use current directory
	return "./TerraStudio"
}
