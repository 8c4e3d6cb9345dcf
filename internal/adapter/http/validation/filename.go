package validation

import (
	"path/filepath"
	"strings"
)

const maxFilenameLen = 255

// SanitizeFilename makes a client-supplied filename safe for
// Content-Disposition headers and path joins: path separators, quotes
// and control characters become underscores, overlong names are
// truncated with their extension preserved, and degenerate input falls
// back to "file". Printable Unicode passes through.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 32 || r == 127:
			b.WriteRune('_')
		case r == '"' || r == '\\' || r == '/' || r == ':':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" || strings.Trim(out, "_") == "" {
		return "file"
	}
	if len(out) > maxFilenameLen {
		out = truncateKeepingExt(out)
	}
	return out
}

// SafeExt returns a lowercased extension suitable for building asset
// names, or empty when the extension looks hostile or absent.
func SafeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func truncateKeepingExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLen {
		return cutBytes(name, maxFilenameLen)
	}
	base := name[:len(name)-len(ext)]
	return cutBytes(base, maxFilenameLen-len(ext)) + ext
}

// cutBytes truncates to at most n bytes without splitting a rune.
func cutBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
