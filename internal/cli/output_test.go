package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range []string{"table", "json", "yaml"} {
		assert.NoError(t, ValidateOutputFormat(f), f)
	}
	err := ValidateOutputFormat("wide")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "", false)

	require.NoError(t, p.Print(nil, []string{"id", "username"}, [][]string{
		{"u1", "ace"},
		{"u-long-id", "bee"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"), lines[0])
	assert.Contains(t, lines[0], "USERNAME")
	assert.True(t, strings.HasPrefix(lines[1], "u1 "), lines[1])
	assert.Contains(t, lines[2], "bee")
	assert.NotContains(t, buf.String(), "|")
	assert.NotContains(t, buf.String(), "+-")

	// columns line up
	assert.Equal(t, strings.Index(lines[0], "USERNAME"), strings.Index(lines[1], "ace"))
}

func TestPrinter_TableNoHeaders(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, OutputFormatTable, true)

	require.NoError(t, p.Print(nil, []string{"id"}, [][]string{{"u1"}}))
	assert.NotContains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), "u1")

	buf.Reset()
	require.NoError(t, p.Print(nil, []string{"id"}, nil))
	assert.Empty(t, buf.String())
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, OutputFormatJSON, false)

	require.NoError(t, p.Print([]sample{{ID: "u1", Username: "ace"}}, nil, nil))
	assert.JSONEq(t, `[{"id":"u1","username":"ace"}]`, buf.String())
}

func TestPrinter_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, OutputFormatYAML, false)

	require.NoError(t, p.Print(sample{ID: "u1", Username: "ace"}, nil, nil))
	assert.Contains(t, buf.String(), "id: u1")
	assert.Contains(t, buf.String(), "username: ace")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
	assert.Equal(t, "✓ done", FormatSuccess("done"))
	assert.Equal(t, "⚠ careful", FormatWarning("careful"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "hello w...", Truncate("hello world!", 10))
	assert.Equal(t, "héé", Truncate("héééé", 3))
	assert.Equal(t, "anything", Truncate("anything", 0))
	assert.Equal(t, "line one line two", Truncate("line one\nline two", 0))
}

func TestRunWithSpinner(t *testing.T) {
	var buf bytes.Buffer

	called := false
	require.NoError(t, RunWithSpinner(&buf, true, "working", func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.Empty(t, buf.String())

	boom := errors.New("boom")
	err := RunWithSpinner(&buf, false, "working", func() error { return boom })
	assert.ErrorIs(t, err, boom)
}
