package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptSecretsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultSecretsFile)
	secrets := map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant-test123",
		"OPENAI_API_KEY":    "sk-test-openai",
	}

	require.NoError(t, EncryptSecretsFile(path, "test-password-12345", secrets))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	decrypted, err := DecryptSecretsFile(path, "test-password-12345")
	require.NoError(t, err)
	assert.Equal(t, secrets, decrypted)
}

func TestDecryptWithWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSecretsFile)
	require.NoError(t, EncryptSecretsFile(path, "correct-password", map[string]string{"K": "v"}))

	_, err := DecryptSecretsFile(path, "wrong-password")
	require.Error(t, err)
	assert.Equal(t, "decryption failed (wrong password or corrupted file)", err.Error())
}

func TestDecryptFixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSecretsFile)
	require.NoError(t, EncryptSecretsFile(path, "pw", map[string]string{"K": "v"}))
	require.NoError(t, os.Chmod(path, 0o644))

	_, err := DecryptSecretsFile(path, "pw")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCorruptedSecretsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSecretsFile)
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := DecryptSecretsFile(path, "pw")
	assert.ErrorContains(t, err, "too small")
}

func TestSecretsFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSecretsFile)
	assert.False(t, SecretsFileExists(path))
	require.NoError(t, EncryptSecretsFile(path, "pw", map[string]string{}))
	assert.True(t, SecretsFileExists(path))
}

func TestGetSecretPrecedence(t *testing.T) {
	SetDecryptedSecrets(map[string]string{"EOLMATCH_TEST_SECRET": "from-secrets-file"})
	defer SetDecryptedSecrets(nil)
	t.Setenv("EOLMATCH_TEST_SECRET", "from-env")

	value, err := GetSecret("EOLMATCH_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-secrets-file", value)

	SetDecryptedSecrets(nil)
	value, err = GetSecret("EOLMATCH_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	SetSecret("EOLMATCH_TEST_OTHER", "set-in-memory")
	value, err = GetSecret("EOLMATCH_TEST_OTHER")
	require.NoError(t, err)
	assert.Equal(t, "set-in-memory", value)

	_, err = GetSecret("EOLMATCH_TEST_MISSING")
	assert.Error(t, err)
}
