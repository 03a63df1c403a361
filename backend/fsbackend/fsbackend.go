/*
* Honeytrap
* Copyright (C) 2016-2018 DutchSec (https://dutchsec.com/)
*
* This program is free software; you can redistribute it and/or modify it under
* the terms of the GNU Affero General Public License version 3 as published by the
* Free Software Foundation.
*
* This program is distributed in the hope that it will be useful, but WITHOUT
* ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
* FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for more
* details.
*
* You should have received a copy of the GNU Affero General Public License
* version 3 along with this program in the file "LICENSE".  If not, see
* <http://www.gnu.org/licenses/agpl-3.0.txt>.
*
* See https://honeytrap.io/ for more details. All requests should be sent to
* licensing@honeytrap.io
*
* The interactive user interfaces in modified source and object code versions
* of this program must display Appropriate Legal Notices, as required under
* Section 5 of the GNU Affero General Public License version 3.
*
* In accordance with Section 7(b) of the GNU Affero General Public License version 3,
* these Appropriate Legal Notices must retain the display of the "Powered by
* Honeytrap" logo and retain the original copyright notice. If the display of the
* logo is not reasonably feasible for technical reasons, the Appropriate Legal Notices
* must display the words "Powered by Honeytrap" and retain the original copyright notice.
 */
// Package fsbackend serves a directory of the host as sandboxed file system.
package fsbackend

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/honeytrap/ftpd/backend"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("ftpd/fsbackend")

var _ backend.Filesystem = (*FS)(nil)

// FS is the root of the sandbox, shared by all sessions.
type FS struct {
	root string
}

// New returns a file system rooted at root, which is created when missing.
func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(abs, 0770); err != nil {
		return nil, errors.Wrap(err, "fsbackend: creating root")
	}

	return &FS{root: abs}, nil
}

func (fs *FS) NewDir() (backend.Dir, error) {
	return &Dir{
		root: fs.root,
		cwd:  string(filepath.Separator),
	}, nil
}

// Dir is the view of one session, with its own working directory.
type Dir struct {
	root string // absolute path on host
	cwd  string // working directory relative to root
}

// RealPath returns the host path of path. The result never escapes the
// root.
func (d *Dir) RealPath(path string) string {
	var abspath string

	if !filepath.IsAbs(path) {
		abspath = filepath.Join(d.cwd, path)
	} else {
		abspath = filepath.Clean(path)
	}

	return filepath.Join(d.root, abspath)
}

func (d *Dir) virtual(rpath string) (string, error) {
	rel, err := filepath.Rel(d.root, rpath)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(filepath.Join(string(filepath.Separator), rel)), nil
}

func (d *Dir) Pwd() string {
	return filepath.ToSlash(d.cwd)
}

func (d *Dir) ChangeDir(path string) error {
	rpath := d.RealPath(path)

	info, err := os.Lstat(rpath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("Not a directory: %s", path)
	}

	cwd, err := d.virtual(rpath)
	if err != nil {
		return err
	}

	d.cwd = cwd
	return nil
}

func (d *Dir) Stat(path string) (os.FileInfo, error) {
	return os.Lstat(d.RealPath(path))
}

func (d *Dir) MakeDir(path string) (string, error) {
	rpath := d.RealPath(path)

	if err := os.Mkdir(rpath, 0770); err != nil {
		return "", err
	}

	return d.virtual(rpath)
}

func (d *Dir) DeleteDir(path string) error {
	rpath := d.RealPath(path)

	info, err := os.Lstat(rpath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("Not a directory: %s", path)
	}

	if rpath == d.root {
		return errors.New("fsbackend: can not delete root")
	}

	return os.Remove(rpath)
}

func (d *Dir) DeleteFile(path string) error {
	rpath := d.RealPath(path)

	info, err := os.Lstat(rpath)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return fmt.Errorf("Is a directory: %s", path)
	}

	return os.Remove(rpath)
}

func (d *Dir) Rename(from, to string) error {
	return os.Rename(d.RealPath(from), d.RealPath(to))
}

func (d *Dir) Open(path string, offset int64) (backend.File, error) {
	rpath := d.RealPath(path)

	f, err := os.Open(rpath)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("Is a directory: %s", path)
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
	}

	log.Debugf("Opened %s for reading at %d", rpath, offset)
	return backend.NewReadFile(path, info.Size(), f, f), nil
}

func (d *Dir) Create(path string, offset int64, appendData bool) (backend.File, error) {
	rpath := d.RealPath(path)

	if info, err := os.Lstat(rpath); err == nil && info.IsDir() {
		return nil, errors.New("A dir has the same name")
	}

	flag := os.O_WRONLY | os.O_CREATE
	switch {
	case appendData:
		flag |= os.O_APPEND
	case offset == 0:
		flag |= os.O_TRUNC
	}

	f, err := os.OpenFile(rpath, flag, 0660)
	if err != nil {
		return nil, err
	}

	if offset > 0 && !appendData {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
	}

	log.Debugf("Opened %s for writing at %d (append %t)", rpath, offset, appendData)
	return backend.NewWriteFile(path, f, f), nil
}
