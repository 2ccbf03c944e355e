package core

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// LocalPath resolves a storage location to an absolute local filesystem
// path. It accepts `file:` URIs and plain paths; any other scheme is a
// ConfigurationError attributed to field. Plain paths are taken literally.
// In a file URI, `?` and `#` are part of the path and percent escapes are
// decoded.
func LocalPath(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &ConfigurationError{Field: field, Message: "path must not be empty"}
	}

	p := trimmed
	if filepath.VolumeName(trimmed) == "" {
		if scheme, rest, ok := cutScheme(trimmed); ok {
			if !strings.EqualFold(scheme, "file") {
				return "", &ConfigurationError{Field: field, Value: raw, Message: "path has a non local scheme"}
			}
			fp, err := fileURIPath(rest)
			if err != nil {
				return "", &ConfigurationError{Field: field, Value: raw, Message: err.Error()}
			}
			p = fp
		}
	}
	if p == "" {
		return "", &ConfigurationError{Field: field, Value: raw, Message: "path must not be empty"}
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", &ConfigurationError{Field: field, Value: raw, Message: err.Error()}
	}
	return abs, nil
}

// cutScheme splits "scheme:rest" when the prefix is a URI scheme of at least
// two characters and rest starts with a slash. Anything else is a plain path.
func cutScheme(s string) (scheme, rest string, ok bool) {
	scheme, rest, found := strings.Cut(s, ":")
	if !found || len(scheme) < 2 || !strings.HasPrefix(rest, "/") {
		return "", "", false
	}
	for i, r := range scheme {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return "", "", false
		}
	}
	return scheme, rest, true
}

// fileURIPath returns the local path of the part of a file URI after "file:".
func fileURIPath(rest string) (string, error) {
	if after, ok := strings.CutPrefix(rest, "//"); ok {
		host, path, _ := strings.Cut(after, "/")
		if host != "" && !strings.EqualFold(host, "localhost") {
			return "", errors.New("file URI must not name a remote host")
		}
		rest = "/" + path
	}
	path, err := url.PathUnescape(rest)
	if err != nil {
		return "", err
	}
	// file:///C:/x on Windows.
	if len(path) > 2 && path[0] == '/' && filepath.VolumeName(path[1:]) != "" {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}
