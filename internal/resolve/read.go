// Package resolve implements the file/URL resolution the manifest item
// uses to load a goal manifest: a single ReadFileContent/ResolveAllFiles
// pair any item can call without knowing whether its source is a local
// path, a directory, or an http(s) URL.
package resolve

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReadFileContent reads filename's content. An http(s) URL is fetched over
// the network; anything else is read as a local path.
func ReadFileContent(filename string) ([]byte, error) {
	if IsURL(filename) {
		return ReadRemoteFileContent(filename)
	}
	return os.ReadFile(filename)
}

// IsURL reports whether filename names an http(s) resource rather than a
// local path.
func IsURL(filename string) bool {
	u, err := url.Parse(filename)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// ReadRemoteFileContent fetches rawURL over HTTP(S).
func ReadRemoteFileContent(rawURL string) ([]byte, error) {
	resp, err := httpClient.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("resolve: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("resolve: fetching %s: unexpected status %s", rawURL, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("resolve: reading body of %s: %w", rawURL, err)
	}
	return b, nil
}

// ResolveAllFiles expands a mix of file paths, directories and URLs into a
// flat, sorted list of file paths to read: a directory is expanded to its
// manifest-looking children (recursively when recursive is true); URLs and
// plain files pass through unchanged.
func ResolveAllFiles(paths []string, recursive bool) ([]string, error) {
	var out []string
	for _, p := range paths {
		if IsURL(p) {
			out = append(out, p)
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("resolve: stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		found, err := expandDir(p, recursive)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	sort.Strings(out)
	return out, nil
}

func expandDir(dir string, recursive bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if isManifestExt(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func isManifestExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}
