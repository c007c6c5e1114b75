// Package archive reads documentation build archives: gzipped tarballs
// whose members live under a single top-level container directory.
//
// Member paths are exposed with the container directory stripped, because
// the directory name is chosen by whoever packed the archive and carries no
// meaning ("cd build && tar zcf mydocs.tar.gz json" produces json/...).
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/dochost/internal/derrors"
)

// Reader provides member enumeration and per-member byte access for one
// archive. Members are read into memory up front so the underlying file
// handle is released before the importer starts its work, on every path
// including errors.
type Reader struct {
	members map[string][]byte
	paths   []string
}

// Open reads the archive at filename.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryArchive, derrors.CodeArchiveCorrupt, "open archive").
			WithContext("archive", filename)
	}
	defer f.Close()

	r, err := FromReader(f)
	if err != nil {
		var de *derrors.Error
		if errors.As(err, &de) {
			de.WithContext("archive", filename)
		}
		return nil, err
	}
	return r, nil
}

// FromReader reads an archive from an already-open stream. The caller
// retains ownership of r.
func FromReader(r io.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryArchive, derrors.CodeArchiveCorrupt, "archive is not gzip data")
	}
	defer gz.Close()

	members := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CategoryArchive, derrors.CodeArchiveCorrupt, "read tar member")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := stripContainer(hdr.Name)
		if name == "" {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil { //nolint:gosec // trusted build output, sized by tar header
			return nil, derrors.Wrap(err, derrors.CategoryArchive, derrors.CodeArchiveCorrupt, "read tar member data").
				WithContext("member", hdr.Name)
		}
		members[name] = buf.Bytes()
	}

	paths := make([]string, 0, len(members))
	for p := range members {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return &Reader{members: members, paths: paths}, nil
}

// Paths returns all member paths, container directory stripped, sorted.
func (r *Reader) Paths() []string {
	return r.paths
}

// Has reports whether the archive contains the member.
func (r *Reader) Has(memberPath string) bool {
	_, ok := r.members[memberPath]
	return ok
}

// Member returns the raw bytes of one member.
func (r *Reader) Member(memberPath string) ([]byte, error) {
	data, ok := r.members[memberPath]
	if !ok {
		return nil, derrors.New(derrors.CategoryArchive, derrors.CodeMemberNotFound, "archive has no such member").
			WithContext("member", memberPath)
	}
	return data, nil
}

// stripContainer removes the single leading path component and normalizes
// the rest. Paths that escape the container ("..") are rejected by
// returning "".
func stripContainer(name string) string {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return ""
	}
	i := strings.IndexByte(clean, '/')
	if i < 0 {
		// A bare top-level entry is the container itself.
		return ""
	}
	return clean[i+1:]
}
