package dotenv

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads .env plus any extra files into the process environment. Missing
// files are skipped; variables already set in the environment win.
func Load(extra ...string) error {
	files := []string{".env"}
	if p := strings.TrimSpace(os.Getenv("DOTENV_PATH")); p != "" {
		files = append(files, p)
	}
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			files = append(files, p)
		}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Bool reads a boolean flag such as ENABLE_TRADING. Unset means false.
func Bool(key string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("%s: expected a boolean, got %q", key, os.Getenv(key))
	}
}
