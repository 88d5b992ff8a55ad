package main

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/persist"
)

func writeTestWAL(t *testing.T, path string, heights ...uint64) {
	t.Helper()
	w, err := persist.OpenWAL(path)
	require.NoError(t, err)
	for _, h := range heights {
		rec := frameRecord{Height: h, Timestamp: h * 1000, StateHash: codec.Hash([]byte{byte(h)})}
		_, err := w.Append(encodeRecord(rec))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func newTestContext(t *testing.T, cmd cli.Command, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range cmd.Flags {
		f.Apply(set)
	}
	var flagArgs []string
	for k, v := range args {
		flagArgs = append(flagArgs, "-"+k, v)
	}
	require.NoError(t, set.Parse(flagArgs))

	app := cli.NewApp()
	app.Writer = &bytes.Buffer{}
	return cli.NewContext(app, set, nil)
}

func TestReportCommand(t *testing.T) {
	walPath := filepath.Join(t.TempDir(), "entity.wal")
	writeTestWAL(t, walPath, 1, 2, 3)

	ctx := newTestContext(t, reportCommand, map[string]string{"wal": walPath})
	require.NoError(t, reportCommand.Action.(func(*cli.Context) error)(ctx))

	out := ctx.App.Writer.(*bytes.Buffer).String()
	assert.Contains(t, out, "height=1")
	assert.Contains(t, out, "height=2")
	assert.Contains(t, out, "height=3")
}

func TestSnapshotCommand(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "entity.wal")
	writeTestWAL(t, walPath, 1, 2, 3, 4, 5)

	ctx := newTestContext(t, snapshotCommand, map[string]string{"wal": walPath, "dir": dir, "height": "3"})
	require.NoError(t, snapshotCommand.Action.(func(*cli.Context) error)(ctx))

	rlpPath, _ := persist.SnapshotPaths(dir, 3)
	snap, err := persist.ReadSnapshot(rlpPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Height)
	assert.Len(t, snap.Replicas, 3) // heights 1,2,3 only
}

func TestReplayCommandDetectsDiscontinuity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity.wal")
	w, err := persist.OpenWAL(path)
	require.NoError(t, err)
	_, err = w.Append(encodeRecord(frameRecord{Height: 1, StateHash: codec.Hash([]byte{1})}))
	require.NoError(t, err)
	_, err = w.Append(encodeRecord(frameRecord{Height: 3, StateHash: codec.Hash([]byte{3})})) // skips height 2
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ctx := newTestContext(t, replayCommand, map[string]string{"wal": path})
	err = replayCommand.Action.(func(*cli.Context) error)(ctx)
	require.Error(t, err)
	exitErr, ok := err.(cli.ExitCoder)
	require.True(t, ok)
	assert.Equal(t, 1, exitErr.ExitCode())
}

func TestReplayCommandHappyPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity.wal")
	writeTestWAL(t, path, 1, 2, 3)

	ctx := newTestContext(t, replayCommand, map[string]string{"wal": path})
	require.NoError(t, replayCommand.Action.(func(*cli.Context) error)(ctx))
	assert.Contains(t, ctx.App.Writer.(*bytes.Buffer).String(), "heights 1..3")
}
