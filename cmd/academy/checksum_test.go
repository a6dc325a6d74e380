package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.bin")
	data := []byte("academy test data")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	h := sha256.Sum256(data)
	want := hex.EncodeToString(h[:])

	assert.NoError(t, verifyChecksum(path, want))
	assert.ErrorContains(t, verifyChecksum(path, "00"+want[2:]), "checksum mismatch")
	assert.ErrorContains(t, verifyChecksum(path, ""), "no pinned checksum")
	assert.Error(t, verifyChecksum("/nonexistent/file", want))
}

func TestDownloadToTempFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	path, err := downloadToTempFile(ts.URL+"/asset", dir, ts.Client())
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	_, err = downloadToTempFile(ts.URL+"/missing", dir, ts.Client())
	assert.ErrorContains(t, err, "404")
}

func TestExtractTarGz(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range map[string]string{
		"README.md":                  "docs",
		"release/bin/mermaid-ascii": "#!/bin/sh\n",
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	dir := t.TempDir()
	require.NoError(t, extractTarGz(bytes.NewReader(buf.Bytes()), dir, "mermaid-ascii"))
	got, err := os.ReadFile(filepath.Join(dir, "mermaid-ascii"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(got))

	err = extractTarGz(bytes.NewReader(buf.Bytes()), dir, "other")
	assert.ErrorContains(t, err, "not found in archive")
}

func TestMermaidASCIIAssetName(t *testing.T) {
	name, err := mermaidASCIIAssetName("linux", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "mermaid-ascii_Linux_x86_64.tar.gz", name)
	assert.Contains(t, mermaidASCIIChecksums, name)

	name, err = mermaidASCIIAssetName("darwin", "arm64")
	require.NoError(t, err)
	assert.Contains(t, mermaidASCIIChecksums, name)

	_, err = mermaidASCIIAssetName("windows", "amd64")
	assert.Error(t, err)
	_, err = mermaidASCIIAssetName("linux", "riscv64")
	assert.Error(t, err)
}
