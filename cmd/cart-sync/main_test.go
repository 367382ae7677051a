package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	// cobra keeps flag values between executions, so tests pass every flag they rely on
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	envFile := filepath.Join(t.TempDir(), "none.env")
	rootCmd.SetArgs(append([]string{"--offline", "--env-file", envFile}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func setupRedisEnv(t *testing.T) *miniredis.Miniredis {
	mr := miniredis.RunT(t)
	t.Setenv("CART_STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("CART_SHOPPER_ID", "cli-test")
	t.Setenv("LOG_LEVEL", "error")
	return mr
}

func TestCLI_CartPersistsAcrossInvocations(t *testing.T) {
	mr := setupRedisEnv(t)

	out, err := runCLI(t, "add", "P1", "--name", "Tee", "--price", "10000", "-q", "2", "--color", "BLACK", "--size", "M")
	require.NoError(t, err)
	assert.Contains(t, out, "P1")
	assert.Contains(t, out, "20000")

	assert.True(t, mr.Exists("cart-sync:myshop_cart:cli-test"))

	out, err = runCLI(t, "add", "P1", "--name", "Tee", "--price", "10000", "-q", "1", "--color", "BLACK", "--size", "M")
	require.NoError(t, err)
	assert.Contains(t, out, "30000")

	out, err = runCLI(t, "set-qty", "P1", "0", "--color", "BLACK", "--size", "M")
	require.NoError(t, err)
	assert.Contains(t, out, "10000")

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3) // header, one line, totals

	_, err = runCLI(t, "remove", "P1", "--color", "BLACK", "--size", "M")
	require.NoError(t, err)

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "P1")
}

func TestCLI_Clear(t *testing.T) {
	mr := setupRedisEnv(t)

	_, err := runCLI(t, "add", "P9", "--price", "1")
	require.NoError(t, err)
	_, err = runCLI(t, "clear")
	require.NoError(t, err)

	assert.False(t, mr.Exists("cart-sync:myshop_cart:cli-test"))
}

func TestCLI_SetQtyRejectsNonNumber(t *testing.T) {
	setupRedisEnv(t)

	_, err := runCLI(t, "set-qty", "P1", "many")
	assert.ErrorContains(t, err, "invalid quantity")
}

func TestCLI_BadConfig(t *testing.T) {
	t.Setenv("CART_STORAGE_BACKEND", "floppy")

	_, err := runCLI(t, "list")
	assert.ErrorContains(t, err, "unknown CART_STORAGE_BACKEND")
}

func TestCLI_DefaultBackendPersists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	t.Setenv("CART_STORAGE_BACKEND", "")
	t.Setenv("CART_SQLITE_PATH", "")
	t.Setenv("LOG_LEVEL", "error")

	_, err := runCLI(t, "add", "P1", "--name", "Tee", "--price", "10000", "-q", "2", "--color", "BLACK", "--size", "M")
	require.NoError(t, err)

	out, err := runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "P1")
	assert.Contains(t, out, "20000")

	_, err = runCLI(t, "clear")
	require.NoError(t, err)
	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "P1")
}

func TestCLI_SQLitePathPerShopper(t *testing.T) {
	t.Setenv("CART_SQLITE_PATH", filepath.Join(t.TempDir(), "nested", "cart.db"))
	t.Setenv("LOG_LEVEL", "error")

	t.Setenv("CART_SHOPPER_ID", "alice")
	_, err := runCLI(t, "add", "A1", "--price", "100", "-q", "1")
	require.NoError(t, err)

	t.Setenv("CART_SHOPPER_ID", "bob")
	out, err := runCLI(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "A1")

	t.Setenv("CART_SHOPPER_ID", "alice")
	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "A1")
}

func TestCLI_MemoryBackendRefused(t *testing.T) {
	t.Setenv("CART_STORAGE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	_, err := runCLI(t, "add", "P1", "--price", "1", "-q", "1")
	assert.ErrorIs(t, err, errEphemeralBackend)
}

func TestCLI_AddRejectsBlankProductID(t *testing.T) {
	t.Setenv("CART_SQLITE_PATH", filepath.Join(t.TempDir(), "cart.db"))
	t.Setenv("LOG_LEVEL", "error")

	_, err := runCLI(t, "add", "  ", "-q", "1")
	assert.ErrorContains(t, err, "product id is required")
}
