package app

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// extension returns the lower-cased text after the last dot, or "".
func extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

func AllowedFile(filename string) bool {
	return allowedExtensions[extension(filename)]
}

// SanitizeFilename reduces a client-supplied name to ASCII letters, digits,
// '_', '.' and '-', with no path components.
func SanitizeFilename(filename string) string {
	filename = strings.NewReplacer("/", " ", `\`, " ").Replace(filename)

	var b strings.Builder
	for _, r := range norm.NFKD.String(filename) {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}

	var kept strings.Builder
	for _, r := range strings.Join(strings.Fields(b.String()), "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			kept.WriteRune(r)
		}
	}
	return strings.Trim(kept.String(), "._")
}

// StorageName builds "{token}_{sanitized}" where token is a random UUID in
// hex. The original extension is kept even if sanitization ate the stem.
func StorageName(original string) string {
	name := SanitizeFilename(original)
	ext := extension(original)
	if name == "" || path.Ext(name) == "" || extension(name) != ext {
		name = "image." + ext
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return token + "_" + name
}
