package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eolmatch/pkg/eol"
	"eolmatch/pkg/reference"
)

type fakeSource struct {
	err  error
	list []string
}

func (s *fakeSource) Load(context.Context) ([]string, error) {
	return s.list, s.err
}

type fakeLookup struct {
	result  eol.Result
	product string
	version string
}

func (f *fakeLookup) Lookup(_ context.Context, product, version string) eol.Result {
	f.product, f.version = product, version
	return f.result
}

type panicTool struct{}

func (panicTool) Name() string               { return "explode" }
func (panicTool) Definition() ToolDefinition { return ToolDefinition{Name: "explode"} }
func (panicTool) Exec(context.Context, map[string]any) (*ExecResult, error) {
	panic("kaboom")
}

type failingTool struct{}

func (failingTool) Name() string               { return "fail" }
func (failingTool) Definition() ToolDefinition { return ToolDefinition{Name: "fail"} }
func (failingTool) Exec(context.Context, map[string]any) (*ExecResult, error) {
	return nil, errors.New("disk on fire")
}

func decode(t *testing.T, content string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(content), &m))
	return m
}

func TestDefaultRegistryDefinitions(t *testing.T) {
	reg, err := NewDefaultRegistry(reference.NewCache(&fakeSource{}, nil), &fakeLookup{}, nil)
	require.NoError(t, err)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, ToolGetReferenceList, defs[0].Name)
	assert.Equal(t, ToolLookupVersion, defs[1].Name)
	assert.Equal(t, []string{"product", "version"}, defs[1].InputSchema.Required)
	assert.Empty(t, defs[0].InputSchema.Required)
}

func TestRegisterDuplicate(t *testing.T) {
	_, err := NewRegistry(nil, panicTool{}, panicTool{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestExecuteReferenceList(t *testing.T) {
	src := &fakeSource{list: []string{"MySQL 8.0", "PostgreSQL 14"}}
	reg, err := NewDefaultRegistry(reference.NewCache(src, nil), &fakeLookup{}, nil)
	require.NoError(t, err)

	res := reg.Execute(context.Background(), ToolGetReferenceList, nil)
	assert.False(t, res.IsError)
	m := decode(t, res.Content)
	assert.Equal(t, []any{"MySQL 8.0", "PostgreSQL 14"}, m["reference_list"])
	assert.EqualValues(t, 2, m["total_count"])
	assert.NotContains(t, m, "status")
}

func TestExecuteReferenceListErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: /x.xlsx", reference.ErrFileNotFound), ErrTypeFileNotFound},
		{errors.New("corrupt zip"), ErrTypeLoadError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			reg, err := NewDefaultRegistry(reference.NewCache(&fakeSource{err: tt.err}, nil), &fakeLookup{}, nil)
			require.NoError(t, err)

			res := reg.Execute(context.Background(), ToolGetReferenceList, map[string]any{})
			assert.True(t, res.IsError)
			m := decode(t, res.Content)
			assert.Equal(t, "error", m["status"])
			assert.Equal(t, tt.want, m["error_type"])
			assert.Equal(t, []any{}, m["reference_list"])
			assert.EqualValues(t, 0, m["total_count"])
		})
	}
}

func TestExecuteLookupVersion(t *testing.T) {
	lookup := &fakeLookup{result: eol.Result{Status: eol.StatusSuccess, MatchedVersion: "14", MatchType: "MAJOR"}}
	reg, err := NewDefaultRegistry(reference.NewCache(&fakeSource{}, nil), lookup, nil)
	require.NoError(t, err)

	res := reg.Execute(context.Background(), ToolLookupVersion, map[string]any{"product": " PostgreSQL ", "version": 14.6})
	assert.False(t, res.IsError)
	assert.Equal(t, "PostgreSQL", lookup.product)
	assert.Equal(t, "14.6", lookup.version)
	assert.Equal(t, "MAJOR", decode(t, res.Content)["match_type"])
}

func TestExecuteLookupErrorStatusFlagged(t *testing.T) {
	lookup := &fakeLookup{result: eol.Result{Status: eol.StatusError, ErrorType: eol.ErrTypeTimeout, RetryCount: 3}}
	reg, err := NewDefaultRegistry(reference.NewCache(&fakeSource{}, nil), lookup, nil)
	require.NoError(t, err)

	res := reg.Execute(context.Background(), ToolLookupVersion, map[string]any{"product": "MySQL"})
	assert.True(t, res.IsError)
	assert.Equal(t, "", lookup.version)
}

func TestExecuteUnknownTool(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	res := reg.Execute(context.Background(), "rm_rf", nil)
	assert.True(t, res.IsError)
	m := decode(t, res.Content)
	assert.Equal(t, ErrTypeUnknownTool, m["error_type"])
	assert.Equal(t, "Unknown tool: rm_rf", m["error_message"])
}

func TestExecuteRecoversPanicsAndErrors(t *testing.T) {
	reg, err := NewRegistry(nil, panicTool{}, failingTool{})
	require.NoError(t, err)

	res := reg.Execute(context.Background(), "explode", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, ErrTypeServerError, decode(t, res.Content)["error_type"])

	res = reg.Execute(context.Background(), "fail", nil)
	assert.True(t, res.IsError)
	m := decode(t, res.Content)
	assert.Equal(t, ErrTypeServerError, m["error_type"])
	assert.Equal(t, "disk on fire", m["error_message"])
}

func TestStringArg(t *testing.T) {
	args := map[string]any{"s": " x ", "f": 2019.0, "i": 7, "b": true}
	assert.Equal(t, "x", stringArg(args, "s"))
	assert.Equal(t, "2019", stringArg(args, "f"))
	assert.Equal(t, "7", stringArg(args, "i"))
	assert.Equal(t, "true", stringArg(args, "b"))
	assert.Equal(t, "", stringArg(args, "missing"))
}
