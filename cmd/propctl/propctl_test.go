package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-props/pkg/state"
)

const buttonScene = "testdata/button.yaml"

func runPropctl(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resolveJSON(t *testing.T, args ...string) map[string]resolvedValue {
	t.Helper()
	out, _, err := runPropctl(t, append([]string{"resolve", buttonScene, "-o", "json"}, args...)...)
	require.NoError(t, err)

	var values []resolvedValue
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	byName := make(map[string]resolvedValue, len(values))
	for _, value := range values {
		byName[value.Property] = value
	}
	return byName
}

func TestResolveJSON(t *testing.T) {
	values := resolveJSON(t)
	require.Len(t, values, 5)

	tests := []struct {
		property string
		value    any
		frame    string
		isSet    bool
	}{
		{"width", 20.0, "dark-theme", true},
		{"height", 8.0, "local", true},
		{"area", 160.0, "template", true},
		{"title", "Themed", "dark-theme", true},
		{"opacity", 1.0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			got := values[tt.property]
			assert.Equal(t, tt.value, got.Value)
			assert.Equal(t, tt.frame, got.Frame)
			assert.Equal(t, tt.isSet, got.IsSet)
		})
	}
}

func TestResolveText(t *testing.T) {
	out, _, err := runPropctl(t, "resolve", buttonScene)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, []string{"PROPERTY", "VALUE", "FRAME"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"area", "160", "template"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"opacity", "1", "(default)"}, strings.Fields(lines[5]))
}

func TestResolveRejectsUnknownFormat(t *testing.T) {
	_, _, err := runPropctl(t, "resolve", buttonScene, "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestTraceJSON(t *testing.T) {
	out, _, err := runPropctl(t, "trace", buttonScene, "width", "area", "-o", "json")
	require.NoError(t, err)

	var traces []struct {
		Property  string `json:"property"`
		Effective any    `json:"effective"`
		Frames    []struct {
			Scope struct {
				Name string `json:"name"`
			} `json:"scope"`
			Started   bool `json:"started"`
			Effective bool `json:"effective"`
		} `json:"frames"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &traces))
	require.Len(t, traces, 2)

	width := traces[0]
	assert.Equal(t, "width", width.Property)
	assert.Equal(t, 20.0, width.Effective)
	require.Len(t, width.Frames, 1)
	assert.Equal(t, "dark-theme", width.Frames[0].Scope.Name)
	assert.True(t, width.Frames[0].Effective)

	// nothing has read area, so its binding is reported without starting it
	area := traces[1]
	require.Len(t, area.Frames, 1)
	assert.Equal(t, "template", area.Frames[0].Scope.Name)
	assert.False(t, area.Frames[0].Started)
	assert.Equal(t, 0.0, area.Effective)
}

func TestTraceText(t *testing.T) {
	out, _, err := runPropctl(t, "trace", buttonScene, "title")
	require.NoError(t, err)
	assert.Contains(t, out, "title (string) = Themed")
	assert.Contains(t, out, "dark-theme")
}

func TestTraceUnknownProperty(t *testing.T) {
	_, _, err := runPropctl(t, "trace", buttonScene, "depth")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown property "depth"`)
}

func TestSchema(t *testing.T) {
	out, _, err := runPropctl(t, "schema", buttonScene)
	require.NoError(t, err)
	assert.Contains(t, out, "name: width")
	assert.Contains(t, out, "owner_kind: Button")

	out, _, err = runPropctl(t, "schema", buttonScene, "-o", "json")
	require.NoError(t, err)
	var descriptors []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &descriptors))
	require.Len(t, descriptors, 5)
	assert.Equal(t, "area", descriptors[0]["name"])
	width := descriptors[4]
	assert.Equal(t, "width", width["name"])
	assert.Equal(t, "float64", width["type"])
	assert.Equal(t, 10.0, width["default"])
	assert.Equal(t, []any{"gte=0"}, width["rules"])
}

func TestSchemaOpenAPI(t *testing.T) {
	out, _, err := runPropctl(t, "schema", buttonScene, "-o", "openapi")
	require.NoError(t, err)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths      map[string]map[string]any `json:"paths"`
		Components struct {
			Schemas map[string]struct {
				Properties map[string]map[string]any `json:"properties"`
			} `json:"schemas"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "button properties", doc.Info.Title)
	assert.Contains(t, doc.Paths, "/objects/button/properties")

	properties := doc.Components.Schemas["Properties"].Properties
	require.Len(t, properties, 5)
	assert.Equal(t, 0.0, properties["opacity"]["minimum"])
	assert.Equal(t, 1.0, properties["opacity"]["maximum"])
	assert.Equal(t, "Button", properties["width"]["x-owner-kind"])
}

func TestWatchPrintsSequenceChanges(t *testing.T) {
	out, _, err := runPropctl(t, "watch", buttonScene, "--timeout", "10s")
	require.NoError(t, err)

	assert.Contains(t, out, "opacity = 1\n")
	assert.Contains(t, out, "opacity: 1 -> 0.25 [animation]\n")
	assert.Contains(t, out, "opacity: 0.25 -> 0.5 [animation]\n")
	assert.Contains(t, out, "opacity: 0.5 -> 0.75 [animation]\n")
}

func TestPersistAndRestore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "props.db")

	out, _, err := runPropctl(t, "persist", buttonScene, "--db", db, "--set", "width=30", "--set", "title=Saved")
	require.NoError(t, err)
	assert.Contains(t, out, "saved button/local")

	values := resolveJSON(t, "--db", db)
	assert.Equal(t, 30.0, values["width"].Value)
	assert.Equal(t, "local", values["width"].Frame)
	assert.Equal(t, "Saved", values["title"].Value)
	assert.Equal(t, 240.0, values["area"].Value)

	_, _, err = runPropctl(t, "persist", buttonScene, "--db", db, "--etag", "stale", "--set", "width=40")
	require.ErrorIs(t, err, state.ErrETagMismatch)
}

func TestPersistRejectsBadInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "props.db")
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"missing database", []string{"persist", buttonScene, "--set", "width=1"}, "requires --db"},
		{"malformed assignment", []string{"persist", buttonScene, "--db", db, "--set", "width"}, "want name=value"},
		{"unknown property", []string{"persist", buttonScene, "--db", db, "--set", "depth=1"}, "unknown property"},
		{"unconvertible value", []string{"persist", buttonScene, "--db", db, "--set", "width=wide"}, "width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runPropctl(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: info
log_format: json
activity:
  enabled: true
  channel: audit
`), 0o600))

	_, stderr, err := runPropctl(t, "resolve", buttonScene, "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"propctl: activity"`)
	assert.Contains(t, stderr, `"channel":"audit"`)

	_, _, err = runPropctl(t, "resolve", buttonScene, "--config", path, "--evaluator", "lua")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluator")
}
