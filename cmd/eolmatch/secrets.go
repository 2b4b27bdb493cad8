package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"eolmatch/pkg/config"
)

// unlockSecrets decrypts the secrets file into memory when one exists. The
// password comes from EOLMATCH_SECRETS_PASSWORD or an interactive prompt.
func unlockSecrets(path string) error {
	if path == "" || !config.SecretsFileExists(path) {
		return nil
	}

	password := os.Getenv(config.EnvSecretsPassword)
	if password == "" {
		if !stdinIsTerminal() {
			return fmt.Errorf("secrets file %s exists but %s is not set and stdin is not a terminal", path, config.EnvSecretsPassword)
		}
		var err error
		if password, err = readHidden(fmt.Sprintf("🔐 Password for %s: ", path)); err != nil {
			return err
		}
	}

	secrets, err := config.DecryptSecretsFile(path, password)
	if err != nil {
		return fmt.Errorf("failed to decrypt secrets: %w", err)
	}
	config.SetDecryptedSecrets(secrets)
	return nil
}

// ensureAPIKey prompts for the provider's key when none is configured and
// stdin is a terminal. The key is kept in memory only.
func ensureAPIKey(provider string) error {
	if _, err := config.GetAPIKey(provider); err == nil {
		return nil
	}
	name := config.APIKeyName(provider)
	if name == "" {
		return nil
	}
	if !stdinIsTerminal() {
		return fmt.Errorf("no API key for %s: set %s or add it to the secrets file", provider, name)
	}

	key, err := readHidden(fmt.Sprintf("🔑 %s: ", name))
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("no API key entered for %s", provider)
	}
	config.SetSecret(name, key)
	return nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}

func readHidden(prompt string) (string, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
	fmt.Println() // New line after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	defer func() {
		for i := range value {
			value[i] = 0
		}
	}()
	return strings.TrimSpace(string(value)), nil
}
