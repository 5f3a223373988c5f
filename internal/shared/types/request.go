package types

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
)

// EntryKind distinguishes files from directories.
type EntryKind string

const (
	EntryFile      EntryKind = "file"
	EntryDirectory EntryKind = "directory"
)

// Entry is a read-only snapshot of one filesystem entry inside the confined root.
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Kind       EntryKind `json:"kind"`
	Size       int64     `json:"size"`
	Mode       uint32    `json:"mode"`
	ModeString string    `json:"mode_string"`
	ModifiedAt time.Time `json:"modified_at"`
	MIME       string    `json:"mime,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == EntryDirectory
}

// NewEntry snapshots info for the canonical path p.
func NewEntry(p string, info fs.FileInfo) Entry {
	e := Entry{
		Name:       info.Name(),
		Path:       p,
		Kind:       EntryFile,
		Mode:       PosixMode(info.Mode()),
		ModifiedAt: info.ModTime().Truncate(time.Minute),
	}
	if info.IsDir() {
		e.Kind = EntryDirectory
	} else {
		e.Size = info.Size()
	}
	e.ModeString = fmt.Sprintf("%04o", e.Mode)
	return e
}

// ArchiveRequest describes one createArchive call.
type ArchiveRequest struct {
	Sources     []string `json:"sources"`
	ArchiveName string   `json:"archive_name"`
	BaseDir     string   `json:"base_dir"`
}

// FetchRequest describes one fetch call.
type FetchRequest struct {
	URL            string `json:"url"`
	DestinationDir string `json:"destination_dir"`
	SuggestedName  string `json:"suggested_name,omitempty"`
	// Checksum, when set, is the expected "<algorithm>:<hex>" digest of the body.
	Checksum string `json:"checksum,omitempty"`
}

// PosixMode converts an os.FileMode into classic POSIX permission bits.
func PosixMode(m os.FileMode) uint32 {
	bits := uint32(m.Perm())
	if m&os.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if m&os.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if m&os.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}

// FileMode converts classic POSIX permission bits into an os.FileMode.
func FileMode(bits uint32) os.FileMode {
	m := os.FileMode(bits & 0o777)
	if bits&0o4000 != 0 {
		m |= os.ModeSetuid
	}
	if bits&0o2000 != 0 {
		m |= os.ModeSetgid
	}
	if bits&0o1000 != 0 {
		m |= os.ModeSticky
	}
	return m
}

// ParseMode parses an octal permission string such as "755" or "0644".
func ParseMode(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", s, err)
	}
	if v > 0o7777 {
		return 0, fmt.Errorf("invalid mode %q: out of range", s)
	}
	return uint32(v), nil
}
