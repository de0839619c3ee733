package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apmoronez/dogbot/internal/config"
	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	engine, _ := testutil.NewEngine(t)
	cfg := config.DefaultConfig()
	cfg.Store.Namespace = "test"
	return &Deps{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Registry: prometheus.NewRegistry(),
		Engine:   engine,
	}
}

func execute(t *testing.T, deps *Deps, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeDog(t *testing.T, out string) model.Dog {
	t.Helper()
	var dog model.Dog
	require.NoError(t, json.Unmarshal([]byte(out), &dog))
	return dog
}

func decodeDogs(t *testing.T, out string) []model.Dog {
	t.Helper()
	var dogs []model.Dog
	require.NoError(t, json.Unmarshal([]byte(out), &dogs))
	return dogs
}

func TestDogCommands(t *testing.T) {
	deps := newTestDeps(t)

	out, err := execute(t, deps, "", "-t", "T1", "dog", "create", "name=Rex", "breed=lab", "hereDate=2024-05-06")
	require.NoError(t, err)
	rex := decodeDog(t, out)
	assert.Equal(t, int64(1), rex.ID)
	assert.Equal(t, true, rex.Fields["isGood"])
	assert.Equal(t, "2024-05-06T00:00:00.000Z", rex.Fields["hereDate"])

	_, err = execute(t, deps, "", "-t", "T1", "dog", "create", "name=Max", "breed=pug", "birthYear=2020")
	require.NoError(t, err)

	out, err = execute(t, deps, "", "-t", "T1", "dog", "update", "1", "breed=beagle", "hereDate=null")
	require.NoError(t, err)
	updated := decodeDog(t, out)
	assert.Equal(t, "beagle", updated.Fields["breed"])
	assert.NotContains(t, updated.Fields, "hereDate")

	out, err = execute(t, deps, "", "-t", "T1", "dog", "get", "2")
	require.NoError(t, err)
	assert.Equal(t, float64(2020), decodeDog(t, out).Fields["birthYear"])

	out, err = execute(t, deps, "", "-t", "T1", "dog", "list")
	require.NoError(t, err)
	assert.Len(t, decodeDogs(t, out), 2)

	out, err = execute(t, deps, "", "-t", "T1", "dog", "list", "-w", "breed=pug", "-w", "isGood=true")
	require.NoError(t, err)
	dogs := decodeDogs(t, out)
	require.Len(t, dogs, 1)
	assert.Equal(t, int64(2), dogs[0].ID)

	out, err = execute(t, deps, "", "-t", "T1", "dog", "list", "--any", "breed=pug,beagle")
	require.NoError(t, err)
	assert.Len(t, decodeDogs(t, out), 2)

	_, err = execute(t, deps, "", "-t", "T1", "dog", "list", "-w", "breed=pug", "--any", "breed=pug")
	assert.ErrorContains(t, err, "cannot be combined")

	out, err = execute(t, deps, "", "-t", "T1", "dog", "find", "rex")
	require.NoError(t, err)
	assert.Len(t, decodeDogs(t, out), 1)

	out, err = execute(t, deps, "", "-t", "T1", "dog", "names")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"Max", "Rex"}, names)

	out, err = execute(t, deps, "", "-t", "T1", "dog", "random", "-w", "breed=beagle")
	require.NoError(t, err)
	assert.Equal(t, int64(1), decodeDog(t, out).ID)

	_, err = execute(t, deps, "", "-t", "T1", "dog", "random", "-w", "breed=poodle")
	assert.ErrorContains(t, err, "no dog matches")

	require.NoError(t, func() error {
		_, err := execute(t, deps, "", "-t", "T1", "dog", "update", "2", "hereDate=2024-05-07")
		return err
	}())
	out, err = execute(t, deps, "", "-t", "T1", "dog", "here", "--date", "2024-05-07")
	require.NoError(t, err)
	dogs = decodeDogs(t, out)
	require.Len(t, dogs, 1)
	assert.Equal(t, int64(2), dogs[0].ID)

	_, err = execute(t, deps, "", "-t", "T1", "dog", "rm", "1")
	require.NoError(t, err)
	_, err = execute(t, deps, "", "-t", "T1", "dog", "get", "1")
	assert.ErrorIs(t, err, storeerrors.ErrNotFound)
}

func TestDogCommands_InputErrors(t *testing.T) {
	deps := newTestDeps(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no tenant", args: []string{"dog", "list"}, wantErr: "tenant is required"},
		{name: "bad output", args: []string{"-t", "T1", "-o", "xml", "dog", "list"}, wantErr: "unknown output format"},
		{name: "bad id", args: []string{"-t", "T1", "dog", "get", "abc"}, wantErr: "invalid dog id"},
		{name: "zero id", args: []string{"-t", "T1", "dog", "get", "0"}, wantErr: "invalid dog id"},
		{name: "bad assignment", args: []string{"-t", "T1", "dog", "create", "Rex"}, wantErr: "expected field=value"},
		{name: "bad date", args: []string{"-t", "T1", "dog", "here", "--date", "someday"}, wantErr: "invalid date"},
		{name: "create with id", args: []string{"-t", "T1", "dog", "create", "id=4", "name=Rex"}, wantErr: "already has an id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, deps, "", tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDogCommands_YAMLOutput(t *testing.T) {
	deps := newTestDeps(t)

	out, err := execute(t, deps, "", "-t", "T1", "-o", "yaml", "dog", "create", "name=Rex")
	require.NoError(t, err)

	var dog model.Dog
	require.NoError(t, yaml.Unmarshal([]byte(out), &dog))
	assert.Equal(t, int64(1), dog.ID)
	assert.Equal(t, "Rex", dog.Fields["name"])
}

func TestPhotoCommands(t *testing.T) {
	deps := newTestDeps(t)

	_, err := execute(t, deps, "", "-t", "T1", "dog", "create", "name=Rex")
	require.NoError(t, err)

	_, err = execute(t, deps, "", "-t", "T1", "photo", "add", "1", "https://example.com/rex.png")
	require.NoError(t, err)
	_, err = execute(t, deps, "", "-t", "T1", "photo", "add", "9", "https://example.com/ghost.png")
	assert.ErrorIs(t, err, storeerrors.ErrNotFound)

	out, err := execute(t, deps, "", "-t", "T1", "photo", "has", "1", "https://example.com/rex.png")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))

	out, err = execute(t, deps, "", "-t", "T1", "photo", "ls", "1")
	require.NoError(t, err)
	var urls []string
	require.NoError(t, json.Unmarshal([]byte(out), &urls))
	assert.Equal(t, []string{"https://example.com/rex.png"}, urls)

	_, err = execute(t, deps, "", "-t", "T1", "photo", "rm", "1", "https://example.com/rex.png")
	require.NoError(t, err)
	out, err = execute(t, deps, "", "-t", "T1", "photo", "has", "1", "https://example.com/rex.png")
	require.NoError(t, err)
	assert.Equal(t, "false", strings.TrimSpace(out))
}

func TestImportCommand(t *testing.T) {
	deps := newTestDeps(t)

	path := filepath.Join(t.TempDir(), "dogs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Rex\nbreed: lab\n---\nbreed: nameless\n---\nname: Max\n"), 0o600))

	out, err := execute(t, deps, "", "-t", "T1", "import", path)
	assert.EqualError(t, err, "1 of 3 documents failed to import")

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "Rex", results[0]["name"])
	assert.Contains(t, results[1]["error"], "name is required")
	assert.Equal(t, "Max", results[2]["name"])

	out, err = execute(t, deps, "name: Bo\n", "-t", "T2", "import", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"Bo"`)
}

func TestMetadataCommands(t *testing.T) {
	deps := newTestDeps(t)

	_, err := execute(t, deps, "", "team", "save", `{"id":"T1","name":"Alpha"}`)
	require.NoError(t, err)
	_, err = execute(t, deps, `{"id":"U1","real_name":"Ana"}`, "user", "save")
	require.NoError(t, err)

	out, err := execute(t, deps, "", "team", "get", "T1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"T1","name":"Alpha"}`, out)

	out, err = execute(t, deps, "", "user", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"U1","real_name":"Ana"}]`, out)

	out, err = execute(t, deps, "", "channel", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = execute(t, deps, "", "channel", "get", "C1")
	assert.ErrorIs(t, err, storeerrors.ErrNotFound)
	_, err = execute(t, deps, "", "team", "save", `{"name":"no id"}`)
	assert.ErrorIs(t, err, storeerrors.ErrValidation)
	_, err = execute(t, deps, "", "team", "save", `not json`)
	assert.ErrorContains(t, err, "invalid document")
}

func TestServeCommand(t *testing.T) {
	deps := newTestDeps(t)
	deps.Config.Metrics.Port = 0
	core, logs := observer.New(zap.InfoLevel)
	deps.Logger = zap.New(core)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCmd(deps)
	cmd.SetArgs([]string{"serve"})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Dog store ready").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestParseAssignments(t *testing.T) {
	patch, err := parseAssignments([]string{"name=Rex", "owner=a=b", "breed=null", "location="})
	require.NoError(t, err)
	assert.Equal(t, model.Patch{"name": "Rex", "owner": "a=b", "breed": nil, "location": ""}, patch)

	_, err = parseAssignments([]string{"=Rex"})
	assert.Error(t, err)

	filters, err := parseFilters([]string{"breed=lab"})
	require.NoError(t, err)
	assert.Equal(t, []model.Filter{{Field: "breed", Value: "lab"}}, filters)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = NewLogger(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
