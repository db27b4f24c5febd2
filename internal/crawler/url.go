package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrRejected is the base class for links the normalizer refuses to
// turn into graph nodes. Rejections are expected and silent; callers
// count them but do not log them as failures.
var ErrRejected = errors.New("url rejected")

// Rejection causes, all matching errors.Is(err, ErrRejected).
var (
	ErrUnsupportedScheme = fmt.Errorf("%w: unsupported scheme", ErrRejected)
	ErrExcludedExtension = fmt.Errorf("%w: excluded extension", ErrRejected)
	ErrUnparsable        = fmt.Errorf("%w: unparsable", ErrRejected)
)

// excludedExtensions lists resource suffixes that cannot yield further
// links and only add noise to in-degree counts.
var excludedExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
	".webp": {}, ".ico": {}, ".css": {}, ".js": {}, ".pdf": {},
	".zip": {}, ".gz": {}, ".tar": {}, ".rar": {}, ".mp3": {},
	".mp4": {}, ".avi": {}, ".mov": {}, ".doc": {}, ".docx": {},
	".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {}, ".exe": {},
	".dmg": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
}

// Normalizer canonicalizes raw links into comparable graph keys.
// The zero value is ready to use.
type Normalizer struct{}

// Normalize resolves raw against base (base may be nil for absolute
// URLs) and returns the canonical form: lowercased scheme and host,
// default port stripped, fragment dropped, query parameters in sorted
// order. Non-http(s) schemes and non-HTML resource extensions are
// rejected with an error wrapping ErrRejected.
//
// Normalize is idempotent: feeding its output back in yields the same
// string. Domain restriction is the frontier's business, not handled
// here.
func (Normalizer) Normalize(raw string, base *url.URL) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrUnsupportedScheme
	}
	u.Host = strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
		if _, excluded := excludedExtensions[ext]; excluded {
			return "", ErrExcludedExtension
		}
	}

	u.Fragment = ""
	u.RawFragment = ""
	// Values.Encode emits keys in sorted order, which makes parameter
	// order irrelevant to the canonical key.
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	if u.RawQuery == "" {
		u.ForceQuery = false
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// Host returns the lowercased host of a canonical URL, or "" when the
// URL does not parse.
func Host(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
