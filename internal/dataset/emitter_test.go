package dataset

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agusespa/bugharvest/internal/locator"
	"github.com/agusespa/bugharvest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delim = "<CODESPLIT>"

type mapFetcher struct {
	files map[string][]string
	errs  map[string]error
	calls []string
}

func (m *mapFetcher) GetLines(_ context.Context, url string) ([]string, error) {
	m.calls = append(m.calls, url)
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	lines, ok := m.files[url]
	if !ok {
		return nil, &types.FetchError{URL: url, StatusCode: 404, Err: errors.New("not found")}
	}
	return lines, nil
}

var testRev = types.Revision{
	Owner:        "yomorun",
	Repo:         "yomo",
	DefectiveSHA: "base",
	CleanSHA:     "head",
	Title:        "fix overflow",
}

const (
	defURL = "https://github.com/yomorun/yomo/raw/base/pkg%2Ffoo.go"
	clnURL = "https://github.com/yomorun/yomo/raw/head/pkg%2Ffoo.go"
)

func newTestEmitter(fetcher LineFetcher) *Emitter {
	return NewEmitter(fetcher, locator.NewBraceLocator("func"), Options{
		Delimiter:     delim,
		CommentMarker: "//",
		RawBaseURL:    "https://github.com/",
	}, nil)
}

func fileSymbols(markers ...string) []types.TouchedSymbol {
	symbols := []types.TouchedSymbol{{Name: "pkg/foo.go", IsFile: true}}
	for _, m := range markers {
		symbols = append(symbols, types.TouchedSymbol{Name: m})
	}
	return symbols
}

func TestEmitter_EmitsPairForChangedFunction(t *testing.T) {
	fetcher := &mapFetcher{files: map[string][]string{
		defURL: {"package foo\n", "func Bar(x int) int {\n", "\t// add one\n", "\treturn x + 1\n", "}\n"},
		clnURL: {"package foo\n", "func Bar(x int) int {\n", "\treturn x + 2\n", "}\n"},
	}}
	var sink bytes.Buffer

	files, functions, err := newTestEmitter(fetcher).Emit(context.Background(), fileSymbols("func Bar(x int) int {"), testRev, &sink)

	require.NoError(t, err)
	assert.Equal(t, 1, files)
	assert.Equal(t, 1, functions)

	expected := "1" + delim + defURL + delim + "Bar" + delim + "fix overflow" + delim +
		"func Bar(x int) int {\n\treturn x + 1\n}\n" + "\n" +
		"0" + delim + clnURL + delim + "Bar" + delim + "fix overflow" + delim +
		"func Bar(x int) int {\n\treturn x + 2\n}\n" + "\n"
	assert.Equal(t, expected, sink.String())
}

func TestEmitter_IdenticalCodeEmitsNothing(t *testing.T) {
	body := []string{"func Bar(x int) {\n", "  return x\n", "}\n"}
	fetcher := &mapFetcher{files: map[string][]string{defURL: body, clnURL: body}}
	var sink bytes.Buffer

	files, functions, err := newTestEmitter(fetcher).Emit(context.Background(), fileSymbols("func Bar(x int) {"), testRev, &sink)

	require.NoError(t, err)
	assert.Equal(t, 1, files)
	assert.Equal(t, 0, functions)
	assert.Empty(t, sink.String())
}

func TestEmitter_OnlyCommentsChangedEmitsNothing(t *testing.T) {
	fetcher := &mapFetcher{files: map[string][]string{
		defURL: {"func Bar() {\n", "\t// old note\n", "\tgo()\n", "}\n"},
		clnURL: {"func Bar() {\n", "\t// new note\n", "\tgo()\n", "}\n"},
	}}
	var sink bytes.Buffer

	_, functions, err := newTestEmitter(fetcher).Emit(context.Background(), fileSymbols("func Bar() {"), testRev, &sink)

	require.NoError(t, err)
	assert.Equal(t, 0, functions)
	assert.Empty(t, sink.String())
}

func TestEmitter_SkipsFunctionWithoutSpan(t *testing.T) {
	fetcher := &mapFetcher{files: map[string][]string{
		defURL: {"func Bar() {\n", "\treturn\n", "}\n", "func Baz() {\n", "\ta()\n", "}\n"},
		clnURL: {"func Baz() {\n", "\tb()\n", "}\n"},
	}}
	var sink bytes.Buffer

	_, functions, err := newTestEmitter(fetcher).Emit(context.Background(),
		fileSymbols("func Bar() {", "func Baz() {"), testRev, &sink)

	require.NoError(t, err)
	assert.Equal(t, 1, functions, "Bar is missing from the clean revision, Baz still emits")
	assert.Contains(t, sink.String(), delim+"Baz"+delim)
	assert.NotContains(t, sink.String(), delim+"Bar"+delim)
}

func TestEmitter_RowsComeInPairs(t *testing.T) {
	fetcher := &mapFetcher{files: map[string][]string{
		defURL: {"func A() {\n", "\ta1()\n", "}\n", "func B() {\n", "\tb()\n", "}\n", "func (s *S) C(x int) {\n", "\tc1()\n", "}\n"},
		clnURL: {"func A() {\n", "\ta2()\n", "}\n", "func B() {\n", "\tb()\n", "}\n", "func (s *S) C(x int) {\n", "\tc2()\n", "}\n"},
	}}
	var sink bytes.Buffer

	_, functions, err := newTestEmitter(fetcher).Emit(context.Background(),
		fileSymbols("func A() {", "func B() {", "func (s *S) C(x int) {"), testRev, &sink)
	require.NoError(t, err)
	assert.Equal(t, 2, functions)

	records := ReadRecords(sink.Bytes(), delim)
	require.Len(t, records, 4)

	counts := map[int]int{}
	for i, record := range records {
		row, err := ParseRow(record, delim)
		require.NoError(t, err)
		counts[row.Label]++
		if i%2 == 0 {
			assert.Equal(t, types.LabelDefective, row.Label)
		} else {
			assert.Equal(t, types.LabelClean, row.Label)
		}
	}
	assert.Equal(t, counts[types.LabelDefective], counts[types.LabelClean])
}

func TestEmitter_FetchFailureAbortsPull(t *testing.T) {
	fetcher := &mapFetcher{
		files: map[string][]string{defURL: {"func A() {\n", "}\n"}},
		errs:  map[string]error{clnURL: &types.TooManyFailuresError{URL: clnURL, Tries: 3, Err: errors.New("boom")}},
	}
	var sink bytes.Buffer

	_, _, err := newTestEmitter(fetcher).Emit(context.Background(), fileSymbols("func A() {"), testRev, &sink)

	var tooMany *types.TooManyFailuresError
	require.ErrorAs(t, err, &tooMany)
	assert.Empty(t, sink.String())
}

func TestEmitter_UsesSentinelForUnparsableName(t *testing.T) {
	fetcher := &mapFetcher{files: map[string][]string{
		defURL: {"func Error_func_name() {\n", "\tx()\n", "}\n"},
		clnURL: {"func Error_func_name() {\n", "\ty()\n", "}\n"},
	}}
	var sink bytes.Buffer

	_, functions, err := newTestEmitter(fetcher).Emit(context.Background(), fileSymbols("func"), testRev, &sink)

	require.NoError(t, err)
	assert.Equal(t, 1, functions)
	assert.True(t, strings.Contains(sink.String(), delim+UnknownFunctionName+delim))
}

func TestEmitter_FunctionWithoutFileIsSkipped(t *testing.T) {
	fetcher := &mapFetcher{}
	var sink bytes.Buffer

	files, functions, err := newTestEmitter(fetcher).Emit(context.Background(),
		[]types.TouchedSymbol{{Name: "func A() {"}}, testRev, &sink)

	require.NoError(t, err)
	assert.Zero(t, files)
	assert.Zero(t, functions)
	assert.Empty(t, fetcher.calls)
}

func TestFunctionIdentifier(t *testing.T) {
	tests := []struct {
		marker    string
		expected  string
		expectErr bool
	}{
		{"func Bar(x int) {", "Bar", false},
		{"func Bar() {", "Bar", false},
		{"func (s *Server) Run(ctx context.Context) error {", "Run", false},
		{"func (s Server) Run() {", "Run", false},
		{"func (Server) Run() {", "Run", false},
		{"func Map[K comparable](m map[K]int) {", "Map[K", false},
		{"func", "", true},
		{"func (s *Server)", "", true},
		{"func (x int) {", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			name, err := FunctionIdentifier(tt.marker)
			if tt.expectErr {
				var extractErr *types.ExtractionError
				assert.ErrorAs(t, err, &extractErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestRawFileURL(t *testing.T) {
	e := newTestEmitter(&mapFetcher{})
	assert.Equal(t, defURL, e.RawFileURL("yomorun", "yomo", "base", "pkg/foo.go"))
}
