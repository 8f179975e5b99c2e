package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/folio/pkg/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// env is an isolated config and data directory pair.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	return env{configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

// run executes the CLI in-process and returns its output.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	editSet, editUpload, editEnable, editDisable = nil, nil, nil, nil
	editAddChild, editRemoveChild = nil, nil
	editSave, flagJSON = false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir, "--no-color"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func (e env) list(t *testing.T, typ string) []types.Entity {
	t.Helper()
	out := e.mustRun(t, "list", typ, "--json")
	var entities []types.Entity
	require.NoError(t, json.Unmarshal([]byte(out), &entities), out)
	return entities
}

func TestVersion(t *testing.T) {
	out := newEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "folio v"+Version)
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "folio initialized")

	_, err := os.Stat(filepath.Join(e.configDir, "config.yaml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.dataDir, "folio.db"))
	assert.NoError(t, err)
}

func TestSchema(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "schema")
	assert.Contains(t, out, "project")
	assert.Contains(t, out, "blog_post")

	out = e.mustRun(t, "schema", "project")
	assert.Contains(t, out, "details (mandatory)")
	assert.Contains(t, out, "cover_image")

	_, err := e.run(t, "schema", "spaceship")
	assert.ErrorIs(t, err, types.ErrUnknownEntityType)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestEditLifecycle(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "init")

	_, err := e.run(t, "edit", "project", "--set", "title=Folio", "--save")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, exitUserError, exitCode(err))

	png := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))

	out := e.mustRun(t, "edit", "project",
		"--set", "title=Folio",
		"--set", "category=tooling",
		"--set", "tech_stack=go,sqlite,go",
		"--upload", "cover_image="+png,
		"--add-child", "tags:name=cli",
		"--save")
	assert.Contains(t, out, "saved project")

	projects := e.list(t, "project")
	require.Len(t, projects, 1)
	p := projects[0]
	assert.Equal(t, "Folio", p.Fields["title"])
	assert.Equal(t, []any{"go", "sqlite"}, p.Fields["tech_stack"])
	assert.True(t, strings.HasPrefix(p.Fields["cover_image"].(string), "/media/project/"))

	out = e.mustRun(t, "show", "project", p.ID)
	assert.Contains(t, out, "cli")

	_, err = e.run(t, "edit", "project", p.ID, "--set", "repo_url=https://example.com", "--save")
	assert.ErrorIs(t, err, errUsage, "links section starts disabled")

	e.mustRun(t, "edit", "project", p.ID, "--enable", "links", "--set", "repo_url=https://example.com", "--save")
	out = e.mustRun(t, "toggle", "project", p.ID, "details")
	assert.Contains(t, out, "mandatory")
	out = e.mustRun(t, "toggle", "project", p.ID, "links")
	assert.Contains(t, out, "links (off)")

	_, err = e.run(t, "edit", "project", p.ID, "--set", "category=games", "--save")
	assert.ErrorIs(t, err, types.ErrInvalidOption)

	out = e.mustRun(t, "edit", "project", p.ID, "--set", "title=Folio", "--save")
	assert.Contains(t, out, "nothing to save")

	e.mustRun(t, "delete", "project", p.ID)
	assert.Empty(t, e.list(t, "project"))
}

func TestReorder(t *testing.T) {
	e := newEnv(t)
	for _, name := range []string{"GitHub", "Mastodon"} {
		e.mustRun(t, "edit", "social_link", "--set", "platform="+strings.ToLower(name), "--set", "url=https://"+name+".example", "--save")
	}
	links := e.list(t, "social_link")
	require.Len(t, links, 2)

	e.mustRun(t, "reorder", "social_link", links[1].ID, links[0].ID)
	reordered := e.list(t, "social_link")
	assert.Equal(t, links[1].ID, reordered[0].ID)

	_, err := e.run(t, "reorder", "social_link", links[0].ID)
	assert.ErrorIs(t, err, types.ErrReorderMismatch)
}

func TestExportImport(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "edit", "skill_category", "--set", "name=Languages", "--save")
	file := filepath.Join(t.TempDir(), "skills.jsonl")

	out := e.mustRun(t, "export", "skill_categories", file)
	assert.Contains(t, out, "exported 1 records")

	other := newEnv(t)
	out = other.mustRun(t, "import", "skill_categories", file)
	assert.Contains(t, out, "imported 1 records")
	assert.Len(t, other.list(t, "skill_category"), 1)
}
