package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// uriToPath turns a file URI into an absolute filesystem path. Non-file
// schemes and unparseable URIs come back empty; callers treat those
// documents as virtual. A bare path passes through so tools that skip
// the file scheme still resolve.
func uriToPath(raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "file://"):
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return toAbs(filepath.FromSlash(u.Path))
	case strings.Contains(raw, "://"):
		return ""
	case strings.Contains(raw, ":") && !filepath.IsAbs(raw):
		// Scheme-only documents like untitled:Untitled-1 name no file.
		return ""
	default:
		return toAbs(filepath.FromSlash(raw))
	}
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(toAbs(path))}
	return u.String()
}

func toAbs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
