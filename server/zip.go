package server

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cyclopcam/labelconv/pkg/iox"
)

// ZipDir writes every file under srcDir into the zip archive dstFile.
// Names inside the archive are relative to srcDir, with forward slashes.
func ZipDir(srcDir, dstFile string) error {
	return iox.WriteFileAtomic(dstFile, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(srcDir, path)
			if err != nil {
				return err
			}
			return addZipFile(zw, path, filepath.ToSlash(rel))
		})
		if err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
}

func addZipFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(st)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
