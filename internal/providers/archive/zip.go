package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/GriffinCanCode/boxfs/internal/shared/utils"
	"github.com/klauspost/compress/zip"
)

// createZip writes the planned members to a ZIP file at tmp. Headers carry only the member
// name, mode and modification time, so an unchanged tree yields identical bytes.
func (e *Engine) createZip(ctx context.Context, p *plan, tmp string) error {
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range p.members {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := writeZipMember(ctx, zw, m); err != nil {
			zw.Close()
			return fmt.Errorf("add %s: %w", m.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return f.Close()
}

func writeZipMember(ctx context.Context, zw *zip.Writer, m member) error {
	hdr := &zip.FileHeader{
		Name:     m.name,
		Method:   zip.Deflate,
		Modified: m.modTime.UTC().Truncate(time.Second),
	}

	if m.dir {
		hdr.Name += "/"
		hdr.Method = zip.Store
		hdr.SetMode(os.ModeDir | m.mode.Perm())
		_, err := zw.CreateHeader(hdr)
		return err
	}
	hdr.SetMode(m.mode.Perm())

	src, err := os.Open(m.src)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, utils.ContextReader(ctx, src))
	return err
}

// extractZip unpacks a ZIP file into the stage.
func (e *Engine) extractZip(ctx context.Context, archivePath string, st *stage, res *types.Result) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return types.Errorf("extract_archive", archivePath, types.KindInvalidArgument, "unreadable zip: %v", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			st.rejectLink(f.Name, res)
		case mode.IsDir():
			st.mkdir(f.Name, mode, res)
		case mode.IsRegular():
			st.writeFile(ctx, f.Name, mode, f.Modified, func() (io.ReadCloser, error) { return f.Open() }, res)
		default:
			st.skip(f.Name, res)
		}
	}
	return nil
}
