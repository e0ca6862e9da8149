package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/bbgraph/internal/trace"
)

const (
	testBB    = "idx,addr,size,disasm\n0,0x401000,5,|call 0x402000|\n1,0x401005,3,|add eax, 1|\n"
	testTrace = "os_tid,pin_tid,bb_idx,ts\n100,0,0,1\n100,0,1,2\n101,1,-1,3\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pid20.bb.csv", testBB)
	writeFile(t, dir, "pid20.trace.csv", testTrace)
	writeFile(t, dir, "pid3.bb.csv", testBB)
	writeFile(t, dir, "pid3.trace.csv.zst", "")
	writeFile(t, dir, "pid3.trace.csv", testTrace)
	writeFile(t, dir, "pid7.trace.csv", testTrace)
	writeFile(t, dir, "pid3.este.json", "{}")
	writeFile(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pid9.bb.csv"), 0o700))

	procs, orphans, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []Process{
		{PID: 3, BBPath: filepath.Join(dir, "pid3.bb.csv"), TracePath: filepath.Join(dir, "pid3.trace.csv")},
		{PID: 20, BBPath: filepath.Join(dir, "pid20.bb.csv"), TracePath: filepath.Join(dir, "pid20.trace.csv")},
	}, procs)
	assert.Equal(t, []int{7}, orphans)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, _, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pid5.bb.csv.gz", "")
	writeFile(t, dir, "pid5.trace.csv", testTrace)

	p, err := Lookup(dir, 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pid5.bb.csv.gz"), p.BBPath)
	assert.Equal(t, filepath.Join(dir, "pid5.trace.csv"), p.TracePath)

	_, err = Lookup(dir, 6)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadBasicBlocks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pid1.bb.csv", testBB)

	nodes, err := LoadBasicBlocks(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []trace.BasicBlock{
		{ID: "0", Attrs: map[string]string{"addr": "0x401000", "size": "5", "disasm": "call 0x402000"}},
		{ID: "1", Attrs: map[string]string{"addr": "0x401005", "size": "3", "disasm": "add eax, 1"}},
	}, nodes)
}

func TestLoadBasicBlocks_Duplicate(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pid1.bb.csv", "idx,addr\n0,a\n0,b\n")

	_, err := LoadBasicBlocks(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateNode))
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadTrace(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pid1.trace.csv", testTrace)

	events, err := LoadTrace(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []trace.Event{
		{OSTid: 100, PinTid: 0, BBIdx: 0, Attrs: map[string]string{"ts": "1"}},
		{OSTid: 100, PinTid: 0, BBIdx: 1, Attrs: map[string]string{"ts": "2"}},
		{OSTid: 101, PinTid: 1, BBIdx: -1, Attrs: map[string]string{"ts": "3"}},
	}, events)
}

func TestLoadTrace_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pid1.trace.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(testTrace))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	events, err := LoadTrace(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestLoadTrace_Malformed(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad bb_idx", func(t *testing.T) {
		path := writeFile(t, dir, "bad.csv", "os_tid,pin_tid,bb_idx\n1,0,2\n1,0,oops\n")
		_, err := LoadTrace(context.Background(), path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, trace.ErrMalformedField))

		var fieldErr *trace.FieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, trace.FieldBBIdx, fieldErr.Field)
		assert.Equal(t, 3, fieldErr.Line)
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeFile(t, dir, "cols.csv", "os_tid,bb_idx\n1,2\n")
		_, err := LoadTrace(context.Background(), path)
		assert.ErrorContains(t, err, "pin_tid")
	})
}
