package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// APIKeyFromEnv returns NFTGRAB_API_KEY, falling back to OPENSEA_API_KEY
func APIKeyFromEnv() string {
	v := viper.New()
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENSEA_API_KEY")
	return strings.TrimSpace(v.GetString("api_key"))
}

// Prompter asks the user for the API key
type Prompter func() (string, error)

// ResolveAPIKey picks the credential from the flag, then the environment, then the prompt.
// The key is never written to the config file.
func ResolveAPIKey(flagValue string, prompt Prompter) (string, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, nil
	}
	if key := APIKeyFromEnv(); key != "" {
		return key, nil
	}
	if prompt != nil {
		key, err := prompt()
		if err != nil {
			return "", err
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", &domain.ConfigurationError{Field: "api key"}
}

// TerminalPrompter reads the key without echo when in is a terminal.
// It returns nil when in is not a terminal.
func TerminalPrompter(in *os.File, out io.Writer) Prompter {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func() (string, error) {
		_, _ = fmt.Fprint(out, "OpenSea API key: ")
		key, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("api key input failed: %w", err)
		}
		return string(key), nil
	}
}
