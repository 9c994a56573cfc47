package rp

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// TokenFileEnv overrides the token file location.
const TokenFileEnv = "RP_TOKEN_FILE"

// ReadToken reads the API bearer token from path. It warns when the file is
// readable by group or others.
func ReadToken(logger zerolog.Logger, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("Report Portal token file not found: %s (create it with: echo '<your_token>' > %s && chmod 600 %s)", path, path, path)
		}
		return "", fmt.Errorf("failed to stat token file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("token file %s is a directory", path)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn().
			Str("path", path).
			Str("mode", fmt.Sprintf("%#o", perm)).
			Msgf("Token file has insecure permissions, run: chmod 600 %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}
