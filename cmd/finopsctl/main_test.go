package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
)

type env struct {
	dir    string
	config string
	db     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	return &env{
		dir:    dir,
		config: filepath.Join(dir, "console.toml"),
		db:     filepath.Join(dir, "finops.db"),
	}
}

func (e *env) run(args ...string) (string, string, error) {
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", e.config, "--db", e.db, "--queries", "20"}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestViewsCommand(t *testing.T) {
	e := newEnv(t)

	out, _, err := e.run("views")

	require.NoError(t, err)
	assert.Contains(t, out, "VIEW")
	assert.Contains(t, out, "recommendations")
	assert.Contains(t, out, "activity-logs")
	assert.FileExists(t, e.config, "settings are written on first run")
}

func TestListCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		order    []string
		wantErr  error
		errorMsg string
	}{
		{
			name:     "open_recommendations_by_savings",
			args:     []string{"list", "recommendations", "--filter", "status=Open", "--sort", "estimated_savings", "--order", "desc"},
			contains: []string{"ESTIMATED_SAVINGS", "Page 1 of 1 · 4 rows"},
			order:    []string{"rec-002", "rec-001", "rec-003"},
		},
		{
			name:     "paged",
			args:     []string{"list", "recommendations", "--limit", "2", "--page", "3"},
			contains: []string{"Page 3 of 3 · 6 rows", "rec-005", "rec-006"},
		},
		{
			name:     "empty_result",
			args:     []string{"list", "warehouses", "--search", "no such warehouse"},
			contains: []string{"No warehouses found"},
		},
		{
			name:    "unknown_view",
			args:    []string{"list", "budgets"},
			wantErr: domain.ErrUnknownView,
		},
		{
			name:     "malformed_filter",
			args:     []string{"list", "queries", "--filter", "status"},
			errorMsg: "invalid --filter",
		},
		{
			name:     "malformed_date",
			args:     []string{"list", "queries", "--date", "started_at=2025-13-45.."},
			errorMsg: "2025-13-45",
		},
		{
			name:     "missing_view",
			args:     []string{"list"},
			errorMsg: "accepts 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := newEnv(t).run(tt.args...)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				return
			case tt.errorMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}

			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			last := -1
			for _, id := range tt.order {
				i := strings.Index(out, id)
				require.GreaterOrEqual(t, i, 0, "%s missing", id)
				assert.Greater(t, i, last, "%s out of order", id)
				last = i
			}
		})
	}
}

func TestResolveCommand_Persists(t *testing.T) {
	e := newEnv(t)

	out, _, err := e.run("resolve", "rec-001")
	require.NoError(t, err)
	assert.Equal(t, "rec-001 Resolved\n", out)

	_, _, err = e.run("resolve", "rec-001")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus, "the resolution was restored from sqlite")

	out, _, err = e.run("list", "recommendations", "--filter", "status=Resolved")
	require.NoError(t, err)
	assert.Contains(t, out, "rec-001")
	assert.Contains(t, out, "rec-005")

	out, _, err = e.run("reopen", "rec-001")
	require.NoError(t, err)
	assert.Equal(t, "rec-001 Open\n", out)
}

func TestTransitionCommands_Errors(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.run("dismiss", "rec-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = e.run("reopen", "rec-002")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, _, err = e.run("resolve")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "recs.csv")

	_, stderr, err := e.run("export", "recommendations", "--format", "csv", "--output", path, "--filter", "status=Open")

	require.NoError(t, err)
	assert.Equal(t, "Exported 4 rows\n", stderr)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "id,category,severity"), lines[0])
	assert.NotContains(t, lines[0], "title")
}

func TestExportCommand_Stdout(t *testing.T) {
	out, _, err := newEnv(t).run("export", "warehouses", "-f", "json")

	require.NoError(t, err)
	assert.Contains(t, out, "COMPUTE_WH")
}

func TestExportCommand_UnsupportedFormat(t *testing.T) {
	_, _, err := newEnv(t).run("export", "queries", "--format", "pdf")

	assert.ErrorIs(t, err, ports.ErrUnsupportedFormat)
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"name", "city"}, [][]string{
		{"日本", "x"},
		{"ab", "yy"},
		{strings.Repeat("z", 60), "w"},
	})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "NAME"+strings.Repeat(" ", maxCellWidth-4)+"  CITY", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "日本"+strings.Repeat(" ", maxCellWidth-4)+"  x"))
	assert.True(t, strings.HasSuffix(lines[3], "…  w"))
}

func TestLogFile(t *testing.T) {
	e := newEnv(t)
	logPath := filepath.Join(e.dir, "finopsctl.log")

	_, _, err := e.run("--log-file", logPath, "--log-level", "debug", "views")

	require.NoError(t, err)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"console ready"`)
	assert.Contains(t, string(data), `"service":"finopsctl"`)
}
