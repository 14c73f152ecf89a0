package persist

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Name    string
	Samples []float64
}

func TestLZ4Codec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewLZ4Codec(NewGobCodec())
	original := testState{Name: "large", Samples: make([]float64, 4096)}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, &original))
	assert.Less(t, buf.Len(), 4096*8, "zeroed samples should compress")

	var restored testState

	require.NoError(t, codec.Decode(&buf, &restored))
	assert.Equal(t, original, restored)
}

func TestLZ4Codec_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".gob.lz4", NewLZ4Codec(NewGobCodec()).Extension())
	assert.Equal(t, ".gob", NewGobCodec().Extension())
}

func TestLZ4Codec_DecodeGarbage(t *testing.T) {
	t.Parallel()

	var restored testState

	err := NewLZ4Codec(NewGobCodec()).Decode(bytes.NewReader([]byte("not lz4")), &restored)
	require.Error(t, err)
}

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewPersister[testState](dir, NewLZ4Codec(NewGobCodec()))

	require.NoError(t, p.Save("abc", &testState{Name: "small", Samples: []float64{0.1, 0.9}}))

	got, err := p.Load("abc")
	require.NoError(t, err)
	assert.Equal(t, "small", got.Name)
	assert.Equal(t, []float64{0.1, 0.9}, got.Samples)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")
	assert.Equal(t, "abc.gob.lz4", entries[0].Name())
}

func TestPersister_LoadMissing(t *testing.T) {
	t.Parallel()

	p := NewPersister[testState](t.TempDir(), NewGobCodec())

	_, err := p.Load("absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSaveState_InvalidDirectory(t *testing.T) {
	t.Parallel()

	err := SaveState(filepath.Join(t.TempDir(), "missing", "dir"), "x", NewGobCodec(), &testState{})
	require.Error(t, err)
}

func TestSaveState_EncodeErrorLeavesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// gob cannot encode channels.
	err := SaveState(dir, "bad", NewGobCodec(), make(chan int))
	require.Error(t, err)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
