package archive

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// extractTar unpacks a plain, gzip-compressed or zstd-compressed tar stream into the stage.
func (e *Engine) extractTar(ctx context.Context, archivePath string, f format, st *stage, res *types.Result) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var r io.Reader = file
	switch f {
	case formatGzip:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return corrupt(archivePath, err)
		}
		defer gz.Close()
		r = gz
	case formatZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return corrupt(archivePath, err)
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return corrupt(archivePath, err)
		}

		mode := hdr.FileInfo().Mode()
		switch {
		case hdr.Typeflag == tar.TypeLink, mode&os.ModeSymlink != 0:
			st.rejectLink(hdr.Name, res)
		case mode.IsDir():
			st.mkdir(hdr.Name, mode, res)
		case mode.IsRegular():
			st.writeFile(ctx, hdr.Name, mode, hdr.ModTime, func() (io.ReadCloser, error) {
				return io.NopCloser(tr), nil
			}, res)
		default:
			st.skip(hdr.Name, res)
		}
	}
}

func corrupt(archivePath string, err error) error {
	return types.Errorf("extract_archive", archivePath, types.KindInvalidArgument, "unreadable archive: %v", err)
}
