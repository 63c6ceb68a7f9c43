package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ONNXRuntimeVersion matches the onnxruntime_go release fastembed-go links against.
const ONNXRuntimeVersion = "1.23.0"

const onnxReleaseURL = "https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz"

// onnxPlatforms maps GOOS/GOARCH to release archive suffixes.
var onnxPlatforms = map[string]string{
	"linux/amd64":  "linux-x64",
	"linux/arm64":  "linux-aarch64",
	"darwin/amd64": "osx-x86_64",
	"darwin/arm64": "osx-arm64",
}

func onnxLibraryName(goos string) string {
	if goos == "darwin" {
		return "libonnxruntime.dylib"
	}
	return "libonnxruntime.so"
}

// ONNXRuntimeDir is the managed install directory, ~/.local/share/locket/lib.
func ONNXRuntimeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "locket", "lib")
}

// LocateONNXRuntime returns the runtime library path from ONNX_PATH or the
// managed install, or "" when neither exists.
func LocateONNXRuntime() string {
	if p := os.Getenv("ONNX_PATH"); p != "" {
		return p
	}
	managed := filepath.Join(ONNXRuntimeDir(), onnxLibraryName(runtime.GOOS))
	if _, err := os.Stat(managed); err == nil {
		return managed
	}
	return ""
}

// useONNXRuntimeIfInstalled points fastembed-go at the managed runtime when
// ONNX_PATH is unset.
func useONNXRuntimeIfInstalled() {
	if os.Getenv("ONNX_PATH") != "" {
		return
	}
	if p := LocateONNXRuntime(); p != "" {
		_ = os.Setenv("ONNX_PATH", p)
	}
}

// InstallONNXRuntime downloads the runtime for this platform into destDir
// and returns the library path.
func InstallONNXRuntime(ctx context.Context, client *http.Client, destDir string) (string, error) {
	platform, ok := onnxPlatforms[runtime.GOOS+"/"+runtime.GOARCH]
	if !ok {
		return "", fmt.Errorf("onnx runtime: unsupported platform %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(destDir, 0700); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	url := fmt.Sprintf(onnxReleaseURL, ONNXRuntimeVersion, platform, ONNXRuntimeVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading onnx runtime: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading onnx runtime: status %d", resp.StatusCode)
	}

	prefix := fmt.Sprintf("onnxruntime-%s-%s/lib/", platform, ONNXRuntimeVersion)
	return extractONNXLibrary(resp.Body, destDir, prefix, onnxLibraryName(runtime.GOOS))
}

// extractONNXLibrary copies the files under prefix from a .tgz stream into
// destDir, keeping symlinks, and returns the main library path.
func extractONNXLibrary(r io.Reader, destDir, prefix, libName string) (string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	found := false
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar: %w", err)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if !strings.HasPrefix(name, prefix) || hdr.Typeflag == tar.TypeDir {
			continue
		}
		base := filepath.Base(name)
		dest := filepath.Join(destDir, base)

		switch hdr.Typeflag {
		case tar.TypeSymlink:
			_ = os.Remove(dest)
			if err := os.Symlink(hdr.Linkname, dest); err != nil {
				continue
			}
		case tar.TypeReg:
			if err := writeFile(dest, tr); err != nil {
				return "", err
			}
		default:
			continue
		}
		if base == libName || strings.HasPrefix(base, libName+".") {
			found = true
		}
	}

	if !found {
		return "", fmt.Errorf("library %s not found in archive", libName)
	}
	return filepath.Join(destDir, libName), nil
}

func writeFile(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return f.Close()
}
