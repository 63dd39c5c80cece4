package config

import (
	"os"
	"path/filepath"
	"strings"
)

// loadEnvFiles reads .env.local and .env from the working directory and the
// executable's directory, exporting any variable the process does not
// already carry. Invoked only when DATABASE_URL is absent from the
// environment.
func loadEnvFiles() {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	for _, dir := range dirs {
		for _, name := range []string{".env.local", ".env"} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				key, value, ok := strings.Cut(line, "=")
				if !ok {
					continue
				}
				key = strings.TrimSpace(key)
				value = strings.Trim(strings.TrimSpace(value), `"'`)
				if key != "" && os.Getenv(key) == "" {
					_ = os.Setenv(key, value)
				}
			}
		}
	}
}
