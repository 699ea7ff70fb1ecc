package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbao-tools/realmsecrets/internal/enginetest"
	"github.com/openbao-tools/realmsecrets/internal/logging"
)

// setupOptions writes a config file pointing at a fresh fake engine and
// returns the engine plus ready-to-use command options.
func setupOptions(t *testing.T, version int) (*enginetest.Engine, *Options) {
	t.Helper()

	engine := enginetest.New("secret", version)
	addr := engine.Start()
	t.Cleanup(engine.Close)

	tempDir := t.TempDir()
	tokenFile := filepath.Join(tempDir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("sa-jwt"), 0o600))

	configPath := filepath.Join(tempDir, "realmsecrets.yaml")
	configData := strings.Join([]string{
		"address: " + addr,
		"service-account-file: " + tokenFile,
		"role: platform",
		"kv-version: " + map[int]string{1: "1", 2: "2"}[version],
		"cache:",
		"  name: memory",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0o644))

	return engine, &Options{
		ConfigFile: configPath,
		Logger:     logging.NewWithOutput(os.Stderr, false),
	}
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGetCommand(t *testing.T) {
	engine, opts := setupOptions(t, 2)
	engine.Put("keycloak/master/smtp", map[string]string{"password": "p4ss", "secret": "dflt"})

	output, err := runCommand(t, NewGetCommand(opts), "smtp:password", "--realm", "master")
	require.NoError(t, err)
	assert.Equal(t, "p4ss\n", output)

	output, err = runCommand(t, NewGetCommand(opts), "smtp", "--realm", "master")
	require.NoError(t, err)
	assert.Equal(t, "dflt\n", output)
}

func TestGetCommandRequiresRealm(t *testing.T) {
	_, opts := setupOptions(t, 2)

	_, err := runCommand(t, NewGetCommand(opts), "smtp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "realm")
}

func TestGetCommandMissingSecret(t *testing.T) {
	_, opts := setupOptions(t, 2)

	_, err := runCommand(t, NewGetCommand(opts), "absent", "--realm", "master")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPutGetDeleteLifecycle(t *testing.T) {
	engine, opts := setupOptions(t, 2)

	output, err := runCommand(t, NewPutCommand(opts), "smtp", "--realm", "master", "--value", "p4ss")
	require.NoError(t, err)

	var stored struct {
		ID      string `json:"id"`
		VaultID string `json:"vault_id"`
		Value   string `json:"secret"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &stored))
	assert.Equal(t, "smtp", stored.ID)
	assert.Equal(t, "${vault.smtp}", stored.VaultID)
	assert.Equal(t, "p4ss", stored.Value)
	assert.Equal(t, map[string]string{"secret": "p4ss"}, engine.Record("keycloak/master/smtp"))

	output, err = runCommand(t, NewListCommand(opts), "--realm", "master")
	require.NoError(t, err)
	assert.Equal(t, "smtp\n", output)

	output, err = runCommand(t, NewListCommand(opts), "--realm", "master", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"secret_ids":["smtp"]}`, output)

	_, err = runCommand(t, NewDeleteCommand(opts), "smtp", "--realm", "master")
	require.NoError(t, err)
	assert.Nil(t, engine.Record("keycloak/master/smtp"))
}

func TestPutCommandGenerates(t *testing.T) {
	_, opts := setupOptions(t, 1)

	output, err := runCommand(t, NewPutCommand(opts), "api-key", "--realm", "master",
		"--length", "32", "--charset", "lower,digit")
	require.NoError(t, err)

	var stored struct {
		Value string `json:"secret"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &stored))
	assert.Len(t, stored.Value, 32)
}

func TestPutCommandRejectsBadID(t *testing.T) {
	engine, opts := setupOptions(t, 2)

	_, err := runCommand(t, NewPutCommand(opts), "bad/id", "--realm", "master", "--value", "x")
	require.Error(t, err)
	assert.EqualValues(t, 0, engine.Logins())
}

func TestDoctorCommand(t *testing.T) {
	_, opts := setupOptions(t, 2)

	_, err := runCommand(t, NewDoctorCommand(opts))
	require.NoError(t, err)
}

func TestDoctorCommandEngineDown(t *testing.T) {
	engine, opts := setupOptions(t, 2)
	engine.Close()

	_, err := runCommand(t, NewDoctorCommand(opts))
	require.Error(t, err)
}

func TestCommandsFailWithoutConfig(t *testing.T) {
	opts := &Options{
		ConfigFile: filepath.Join(t.TempDir(), "absent.yaml"),
		Logger:     logging.NewWithOutput(os.Stderr, false),
	}

	for _, cmd := range []*cobra.Command{
		NewGetCommand(opts),
		NewListCommand(opts),
	} {
		var err error
		if cmd.Use == "list" {
			_, err = runCommand(t, cmd, "--realm", "master")
		} else {
			_, err = runCommand(t, cmd, "ref", "--realm", "master")
		}
		require.Error(t, err, cmd.Use)
	}
}
