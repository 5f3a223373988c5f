package paths

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Suffixes of the derived names.
const (
	ZipSuffix       = ".zip"
	TarGzSuffix     = ".tar.gz"
	TgzSuffix       = ".tgz"
	PlainSuffix     = "_archive"
	ExtractedSuffix = "_extracted"
	PartialSuffix   = ".part"
)

// ValidateName checks that name is a usable single path component.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name cannot be empty")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("name contains a NUL byte")
	}
	return nil
}

// TarGzName maps a requested archive name to the gzip-compressed tar name.
func TarGzName(name string) string {
	if strings.HasSuffix(name, TarGzSuffix) || strings.HasSuffix(name, TgzSuffix) {
		return name
	}
	return strings.TrimSuffix(name, ZipSuffix) + TarGzSuffix
}

// PlainName maps a requested archive name to the mirrored directory name.
func PlainName(name string) string {
	if strings.HasSuffix(name, PlainSuffix) {
		return name
	}
	return strings.TrimSuffix(name, ZipSuffix) + PlainSuffix
}

// IsTarGzName reports whether name declares the gzip-compressed tar format.
func IsTarGzName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, TarGzSuffix) || strings.HasSuffix(lower, TgzSuffix)
}

// Stem strips the archive extension from a file name.
func Stem(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range []string{TarGzSuffix, TgzSuffix, ".tar.zst", ".tar", ZipSuffix, PlainSuffix} {
		if strings.HasSuffix(lower, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	if ext := filepath.Ext(name); ext != "" && len(name) > len(ext) {
		return name[:len(name)-len(ext)]
	}
	return name
}

// ExtractDir returns the default extraction directory for an archive: a sibling named
// "<stem>_extracted".
func ExtractDir(archivePath string) string {
	return filepath.Join(filepath.Dir(archivePath), Stem(filepath.Base(archivePath))+ExtractedSuffix)
}

// TempName returns a hidden, unique sibling name for staging work on final.
func TempName(final, purpose string) string {
	return filepath.Join(filepath.Dir(final), fmt.Sprintf(".%s.%s.%s", filepath.Base(final), uuid.NewString(), purpose))
}

// IsTemp reports whether name was produced by TempName.
func IsTemp(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	rest, purpose, ok := cut(name[1:])
	if !ok || !tempPurposes[purpose] {
		return false
	}
	_, id, ok := cut(rest)
	if !ok {
		return false
	}
	return uuid.Validate(id) == nil
}

var tempPurposes = map[string]bool{"part": true, "tmp": true, "extract": true}

// cut splits s at its last dot.
func cut(s string) (before, after string, ok bool) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// NameFromURL derives a download file name from the final segment of a URL path, falling back
// to "download_<unix seconds>.file".
func NameFromURL(urlPath string, now time.Time) string {
	base := path.Base(urlPath)
	if base == "" || base == "." || base == "/" || ValidateName(base) != nil {
		return fmt.Sprintf("download_%d.file", now.Unix())
	}
	return base
}
