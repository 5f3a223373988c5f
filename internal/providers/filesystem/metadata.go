package filesystem

import (
	"github.com/gabriel-vasile/mimetype"
)

const unknownMIME = "application/octet-stream"

// detectMIME sniffs the content type of the file at p from its leading bytes.
func detectMIME(p string) string {
	mtype, err := mimetype.DetectFile(p)
	if err != nil {
		return unknownMIME
	}
	return mtype.String()
}
