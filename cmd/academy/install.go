package main

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const mermaidASCIIVersion = "1.1.0"

// SHA-256 checksums for mermaid-ascii v1.1.0 release assets.
var mermaidASCIIChecksums = map[string]string{
	"mermaid-ascii_Darwin_arm64.tar.gz":  "068d2ff869d4921655cab471500fffd8c3ed28155b100518ed3cf3835d53d3d0",
	"mermaid-ascii_Darwin_x86_64.tar.gz": "0cd4c9c01a03284fe866f39a1ce1aaee1e6a2fbd91deedc4ec254cb87622eec8",
	"mermaid-ascii_Linux_arm64.tar.gz":   "3b7d0a95141bfbca838e445ea802ffb7fba8873b3c4af498482c84f83526f2db",
	"mermaid-ascii_Linux_x86_64.tar.gz":  "838ea93d561b3bc83aa15531c6ed7d2d261a8edc521d5484f7e91fe831cc4c65",
}

// runInstall writes settings.json from flags, fetches mermaid-ascii for ASCII
// diagrams and asks a running server to reload.
func runInstall(args []string) error {
	def := defaultConfig()
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	listenAddr := fs.String("listen-addr", def.ListenAddr, "TCP listen address")
	dbPath := fs.String("db-path", def.DBPath, "database path")
	logLevel := fs.String("log-level", def.LogLevel, "log level: debug, info, warn, error")
	contentDir := fs.String("content-dir", "", "lesson content directory (default: embedded)")
	idleTTL := fs.String("session-idle-ttl", def.SessionIdleTTL, "abandon sessions idle this long")
	skipTools := fs.Bool("skip-tools", false, "do not download mermaid-ascii")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := academyDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	cfg := def
	cfg.ListenAddr = *listenAddr
	cfg.DBPath = *dbPath
	cfg.LogLevel = *logLevel
	cfg.ContentDir = *contentDir
	cfg.SessionIdleTTL = *idleTTL
	if _, err := cfg.IdleTTL(); err != nil {
		return err
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	path := settingsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Config written to %s\n", path)

	if !*skipTools {
		installMermaidASCII(toolsDir(), &http.Client{Timeout: 60 * time.Second})
	}

	if !signalRunningServer() {
		fmt.Println("Run `academy serve` to start the server")
	}
	return nil
}

// signalRunningServer sends SIGHUP to a running academy server found via
// its pidfile. Returns true if a server was signaled.
func signalRunningServer() bool {
	data, err := os.ReadFile(pidPath())
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return false
	}
	fmt.Printf("Signaled running server (PID %d) to reload\n", pid)
	return true
}

// installMermaidASCII downloads the mermaid-ascii binary to binDir.
// Failures only print a warning; ASCII diagrams then use the built-in renderer.
func installMermaidASCII(binDir string, client httpGetter) {
	destPath := filepath.Join(binDir, "mermaid-ascii")
	if _, err := os.Stat(destPath); err == nil {
		fmt.Printf("mermaid-ascii already installed at %s\n", destPath)
		return
	}
	if err := fetchMermaidASCII(binDir, client); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; ASCII diagrams use the built-in renderer\n", err)
		_ = os.Remove(destPath)
		return
	}
	fmt.Printf("mermaid-ascii installed to %s\n", destPath)
}

func fetchMermaidASCII(binDir string, client httpGetter) error {
	assetName, err := mermaidASCIIAssetName(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("https://github.com/AlexanderGrooff/mermaid-ascii/releases/download/%s/%s",
		mermaidASCIIVersion, assetName)

	fmt.Printf("Downloading mermaid-ascii %s...\n", mermaidASCIIVersion)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", binDir, err)
	}
	tmpPath, err := downloadToTempFile(url, binDir, client)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer os.Remove(tmpPath)

	if err := verifyChecksum(tmpPath, mermaidASCIIChecksums[assetName]); err != nil {
		return fmt.Errorf("%s: %w", assetName, err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := extractTarGz(f, binDir, "mermaid-ascii"); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return os.Chmod(filepath.Join(binDir, "mermaid-ascii"), 0o755)
}

// mermaidASCIIAssetName returns the release asset name for a platform.
func mermaidASCIIAssetName(goos, goarch string) (string, error) {
	osNames := map[string]string{"darwin": "Darwin", "linux": "Linux"}
	archNames := map[string]string{"amd64": "x86_64", "arm64": "arm64", "386": "i386"}

	osName, ok := osNames[goos]
	if !ok {
		return "", fmt.Errorf("mermaid-ascii: unsupported OS %q", goos)
	}
	archName, ok := archNames[goarch]
	if !ok {
		return "", fmt.Errorf("mermaid-ascii: unsupported architecture %q", goarch)
	}
	return fmt.Sprintf("mermaid-ascii_%s_%s.tar.gz", osName, archName), nil
}

// extractTarGz extracts the regular file named targetName (at any depth)
// from a tar.gz archive into destDir.
func extractTarGz(r io.Reader, destDir, targetName string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("file %q not found in archive", targetName)
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}
		if filepath.Base(hdr.Name) != targetName || hdr.Typeflag != tar.TypeReg {
			continue
		}

		destPath := filepath.Join(destDir, targetName)
		f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return fmt.Errorf("create %s: %w", destPath, err)
		}
		if _, err := io.Copy(f, tr); err != nil { //nolint:gosec // bounded by tar header size
			f.Close()
			return fmt.Errorf("write %s: %w", destPath, err)
		}
		return f.Close()
	}
}
