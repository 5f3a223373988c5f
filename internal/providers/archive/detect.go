package archive

import (
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// format is an archive layout recognized from content.
type format int

const (
	formatUnknown format = iota
	formatDirectory
	formatZip
	formatGzip
	formatTar
	formatZstd
)

func (f format) String() string {
	switch f {
	case formatDirectory:
		return "directory"
	case formatZip:
		return "zip"
	case formatGzip:
		return "gzip"
	case formatTar:
		return "tar"
	case formatZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// detect identifies the layout of the archive at p by its content, never by its name.
// ZIP-based formats (docx, jar, ...) count as ZIP.
func detect(p string) (format, error) {
	info, err := os.Stat(p)
	if err != nil {
		return formatUnknown, err
	}
	if info.IsDir() {
		return formatDirectory, nil
	}

	mtype, err := mimetype.DetectFile(p)
	if err != nil {
		return formatUnknown, err
	}

	for m := mtype; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/zip"):
			return formatZip, nil
		case m.Is("application/gzip"):
			return formatGzip, nil
		case m.Is("application/x-tar"):
			return formatTar, nil
		case m.Is("application/zstd"):
			return formatZstd, nil
		}
	}
	return formatUnknown, nil
}
