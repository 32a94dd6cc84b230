package sink

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	s := NewDirStore(dir)

	w, err := s.Create("lobs/customers/0.blob")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "lobs", "customers", "0.blob"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDirStoreConcurrentArtifacts(t *testing.T) {
	s := NewDirStore(t.TempDir())

	// Directory output lets a table's insert script stay open while
	// its lob files come and go.
	script, err := s.Create("customers.sql")
	require.NoError(t, err)
	lob, err := s.Create("lobs/customers/0.blob")
	require.NoError(t, err)

	_, err = script.Write([]byte("INSERT"))
	require.NoError(t, err)
	_, err = lob.Write([]byte("bytes"))
	require.NoError(t, err)

	require.NoError(t, lob.Close())
	require.NoError(t, script.Close())
	require.NoError(t, s.Close())
}

func TestZipStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.zip")
	s, err := NewZipStore(path)
	require.NoError(t, err)

	for _, e := range []struct{ name, body string }{
		{"import_all.sql", "source customers.sql"},
		{"customers.sql", "INSERT INTO customers"},
	} {
		w, err := s.Create(e.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, e.body)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	require.NoError(t, s.Close())

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 2)
	assert.Equal(t, "import_all.sql", r.File[0].Name)
	assert.Equal(t, "customers.sql", r.File[1].Name)

	rc, err := r.File[1].Open()
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "INSERT INTO customers", string(body))
}

func TestZipStoreRejectsConcurrentEntries(t *testing.T) {
	s, err := NewZipStore(filepath.Join(t.TempDir(), "out.zip"))
	require.NoError(t, err)

	first, err := s.Create("a.sql")
	require.NoError(t, err)

	_, err = s.Create("b.sql")
	assert.True(t, errors.Is(err, ErrEntryOpen))

	require.NoError(t, first.Close())
	second, err := s.Create("b.sql")
	require.NoError(t, err)
	require.NoError(t, second.Close())
	require.NoError(t, s.Close())
}
