package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
permissions:
  access: {label: Access, default: true}
  admin: {label: Admin, admin: true}
  billing: {label: Billing}
plans:
  - id: basic
    name: Basic
    prices: [price_basic]
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogCheck(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

		out, err := run(t, "catalog", "check", path)
		require.NoError(t, err)
		assert.Contains(t, out, "default group: access")
		assert.Contains(t, out, "plan basic (Basic): price_basic")
	})

	t.Run("no default group", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		bad := strings.Replace(catalogYAML, ", default: true", "", 1)
		require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))

		_, err := run(t, "catalog", "check", path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := run(t, "catalog", "check", filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestTokenRequiresUID(t *testing.T) {
	t.Parallel()
	_, err := run(t, "token")
	require.Error(t, err)
}
