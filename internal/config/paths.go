package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultServerConfigPath is where the server looks for its configuration on the NAS.
const DefaultServerConfigPath = "/share/CACHEDEV1_DATA/.config/nas-boot/nas-boot-server-config.yaml"

const clientConfigName = "nas-boot-client-config.yaml"

// DefaultClientConfigPath returns the system-wide client configuration path:
// %ProgramData%\NASBootClient on Windows, the user config dir elsewhere.
func DefaultClientConfigPath() string {
	if runtime.GOOS == "windows" {
		base := os.Getenv("ProgramData")
		if base == "" {
			base = `C:\ProgramData`
		}
		return filepath.Join(base, "NASBootClient", clientConfigName)
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "nas-boot", clientConfigName)
}
