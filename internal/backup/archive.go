package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// maxEntrySize bounds a single archive member when reading.
const maxEntrySize = 1 << 30

type archiveFile struct {
	name string
	data []byte
}

// writeArchive packs files into a gzip-compressed tar.
func writeArchive(files []archiveFile, modTime time.Time) ([]byte, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for _, f := range files {
		header := &tar.Header{
			Name:     f.name,
			Mode:     0600,
			Size:     int64(len(f.data)),
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
		if _, err := tw.Write(f.data); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readArchive unpacks a gzip-compressed tar into memory, keyed by name.
func readArchive(data []byte) (map[string][]byte, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(header.Name)
		if strings.HasPrefix(name, "../") || path.IsAbs(name) {
			return nil, fmt.Errorf("invalid entry name %q", header.Name)
		}
		if header.Size > maxEntrySize {
			return nil, fmt.Errorf("entry %q too large", header.Name)
		}

		content, err := io.ReadAll(io.LimitReader(tr, maxEntrySize))
		if err != nil {
			return nil, err
		}
		files[name] = content
	}
	return files, nil
}
