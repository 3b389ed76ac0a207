package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsblocklist/countrypicker/internal/catalog"
)

type listOutput struct {
	Generation  uint64 `json:"generation"`
	VisibleList []struct {
		Code   string `json:"code"`
		Name   string `json:"name"`
		Region string `json:"region"`
	} `json:"visibleList"`
	AvailableLetters []string `json:"availableLetters"`
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("COUNTRYPICKER_LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListJSON(t *testing.T) {
	out, err := run(t, "list", "--region", "europe", "--exclude", "France,de", "--json")
	require.NoError(t, err)

	var got listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.VisibleList)
	for _, c := range got.VisibleList {
		assert.Equal(t, "Europe", c.Region)
		assert.NotContains(t, []string{"FR", "DE"}, c.Code)
	}
	assert.NotEmpty(t, got.AvailableLetters)
}

func TestListTable(t *testing.T) {
	out, err := run(t, "list", "-r", "oceania", "--preferred", "NZ")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 2)
	assert.Contains(t, lines[0], "CODE")
	assert.True(t, strings.HasPrefix(lines[1], "NZ"), lines[1])
	assert.Contains(t, out, "Australia")
}

func TestSearch(t *testing.T) {
	out, err := run(t, "search", "fra", "--json")
	require.NoError(t, err)

	var got listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.VisibleList)
	assert.Equal(t, "FR", got.VisibleList[0].Code)
	assert.Empty(t, got.AvailableLetters)
}

func TestLetters(t *testing.T) {
	out, err := run(t, "letters", "--region", "americas")
	require.NoError(t, err)
	letters := strings.Fields(out)
	assert.Contains(t, letters, "B")
	assert.Contains(t, letters, "U")

	out, err = run(t, "letters", "--region", "asia", "--jump", "j")
	require.NoError(t, err)
	assert.Contains(t, out, "J: row")
	assert.Contains(t, out, "JP Japan")

	_, err = run(t, "letters", "--region", "asia", "--jump", "X")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", "Deutschland")
	require.NoError(t, err)
	assert.Contains(t, out, "DE")
	assert.Contains(t, out, "49")

	out, err = run(t, "info", "fr", "-t", "fra", "--json")
	require.NoError(t, err)
	var info catalog.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "FR", info.Code)
	assert.Equal(t, "France", info.CountryName)
	assert.Equal(t, "33", info.CallingCode)

	_, err = run(t, "info", "Narnia")
	assert.ErrorIs(t, err, catalog.ErrCountryNotFound)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	txtPath := filepath.Join(dir, "out", "countries.txt")
	jsonPath := filepath.Join(dir, "out", "countries.json")

	out, err := run(t, "export", "--region", "oceania", "--output-txt", txtPath, "--output-json", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported")

	txt, err := os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(txt), "# Country list\n"))
	assert.Contains(t, string(txt), "\nAU\n")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var result ExportResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, len(result.Countries), result.TotalCodes)
	assert.NotZero(t, result.TotalCodes)
}

func TestRegions(t *testing.T) {
	out, err := run(t, "regions")
	require.NoError(t, err)
	assert.Contains(t, out, "Europe")
	assert.Contains(t, out, "Translations: common")
}

func TestInvalidFlags(t *testing.T) {
	_, err := run(t, "list", "--region", "atlantis")
	assert.ErrorContains(t, err, "unknown region")

	_, err = run(t, "list", "--variant", "svg")
	assert.ErrorContains(t, err, "unknown flag variant")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "list")
	assert.ErrorContains(t, err, "failed to read config file")
}
