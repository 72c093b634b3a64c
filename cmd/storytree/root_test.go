package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/storytree/internal/domain/issue"
	"github.com/rpggio/storytree/internal/domain/tree"
	"github.com/rpggio/storytree/internal/testserver"
	"github.com/stretchr/testify/require"
)

// setupEnv points the CLI at a fake Clubhouse and a temp database.
func setupEnv(t *testing.T) *testserver.Clubhouse {
	t.Helper()

	ch := testserver.NewClubhouse(t, testserver.ClubhouseToken)
	epicID := int64(100)
	ch.SetData(
		[]issue.Project{{ID: 7, Name: "Platform"}, {ID: 9, Name: "Legacy", Archived: true}},
		[]issue.Epic{{ID: epicID, Name: "Billing"}},
		[]issue.Story{
			{ID: 1, Name: "Invoice export", ProjectID: 7, EpicID: &epicID},
			{ID: 3, Name: "Rate limits", ProjectID: 7},
		},
	)

	t.Setenv("STORYTREE_CONFIG_PATH", "")
	t.Setenv("STORYTREE_DB_PATH", filepath.Join(t.TempDir(), "data", "storytree.db"))
	t.Setenv("STORYTREE_CLUBHOUSE_URL", ch.URL())
	t.Setenv("STORYTREE_CLUBHOUSE_TOKEN", testserver.ClubhouseToken)
	t.Setenv("STORYTREE_PROJECT_ID", "")
	t.Setenv("STORYTREE_GROUP_BY_EPIC", "")
	t.Setenv("STORYTREE_CREDENTIAL_HELPER", "")
	t.Setenv("STORYTREE_LOG_PATH", "")
	return ch
}

// runCmd executes the CLI and returns stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTreeCommand_Unscoped(t *testing.T) {
	setupEnv(t)

	out, errOut, err := runCmd(t, "tree")
	require.NoError(t, err)
	require.Equal(t, "- Invoice export (#1)\n- Rate limits (#3)\n", out)
	require.Contains(t, errOut, "Warning: "+tree.MissingProjectWarning)
}

func TestTreeCommand_GroupByEpic(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYTREE_GROUP_BY_EPIC", "true")
	t.Setenv("STORYTREE_PROJECT_ID", "7")

	out, errOut, err := runCmd(t, "tree")
	require.NoError(t, err)
	require.Equal(t, "+ Billing (#100)\n  - Invoice export (#1)\n- Rate limits (#3)\n", out)
	require.NotContains(t, errOut, "Warning")

	out, _, err = runCmd(t, "tree", "--collapsed")
	require.NoError(t, err)
	require.Equal(t, "+ Billing (#100)\n- Rate limits (#3)\n", out)
}

func TestTreeCommand_JSON(t *testing.T) {
	setupEnv(t)

	out, _, err := runCmd(t, "tree", "--json")
	require.NoError(t, err)
	var snap struct {
		Generation string `json:"generation"`
		StoryCount int    `json:"story_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.NotEmpty(t, snap.Generation)
	require.Equal(t, 2, snap.StoryCount)
}

func TestTreeCommand_BadToken(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYTREE_CLUBHOUSE_TOKEN", "wrong")

	_, _, err := runCmd(t, "tree")
	require.ErrorIs(t, err, issue.ErrUnauthorized)
}

func TestProjectsAndSelect(t *testing.T) {
	ch := setupEnv(t)

	out, _, err := runCmd(t, "projects")
	require.NoError(t, err)
	require.Equal(t, "  Platform (#7)\n", out)

	out, _, err = runCmd(t, "projects", "--all")
	require.NoError(t, err)
	require.Contains(t, out, "Legacy (#9) [archived]")

	out, _, err = runCmd(t, "select", "7")
	require.NoError(t, err)
	require.Equal(t, "Selected Platform (#7)\n", out)

	out, _, err = runCmd(t, "projects")
	require.NoError(t, err)
	require.Equal(t, "* Platform (#7)\n", out)

	_, _, err = runCmd(t, "tree")
	require.NoError(t, err)
	require.Equal(t, 1, ch.Requests("/projects/7/stories"))

	out, _, err = runCmd(t, "select", "--clear")
	require.NoError(t, err)
	require.Equal(t, "Project selection cleared\n", out)
}

func TestSelect_Errors(t *testing.T) {
	setupEnv(t)

	_, _, err := runCmd(t, "select", "abc")
	require.ErrorContains(t, err, "invalid project id")

	_, _, err = runCmd(t, "select", "404")
	require.ErrorContains(t, err, "not found")

	_, _, err = runCmd(t, "select")
	require.Error(t, err)
}

func TestLogin_WithToken(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYTREE_CLUBHOUSE_TOKEN", "")

	_, _, err := runCmd(t, "tree")
	require.ErrorIs(t, err, issue.ErrUnauthorized)

	out, _, err := runCmd(t, "login", "--token", testserver.ClubhouseToken)
	require.NoError(t, err)
	require.Equal(t, "Clubhouse API token saved\n", out)

	_, _, err = runCmd(t, "tree")
	require.NoError(t, err)
}

func TestLogin_CredentialHelper(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYTREE_CLUBHOUSE_TOKEN", "")

	script := filepath.Join(t.TempDir(), "helper.sh")
	body := "#!/bin/sh\ncat >/dev/null\necho username=me\necho password=" + testserver.ClubhouseToken + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	t.Setenv("STORYTREE_CREDENTIAL_HELPER", script)

	_, _, err := runCmd(t, "login")
	require.NoError(t, err)

	_, _, err = runCmd(t, "tree")
	require.NoError(t, err)
}

func TestLogin_HelperDeclines(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYTREE_CREDENTIAL_HELPER", "exit 1")

	_, _, err := runCmd(t, "login")
	require.ErrorContains(t, err, "login cancelled")
}

func TestLogin_NoHelper(t *testing.T) {
	setupEnv(t)

	_, _, err := runCmd(t, "login")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "no credential helper configured"))
}
