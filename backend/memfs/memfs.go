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
// Package memfs is an in memory file system, shared by all sessions.
package memfs

import (
	"bytes"
	"errors"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/honeytrap/ftpd/backend"
)

var (
	errNotFound = errors.New("memfs: no such file or directory")
	errNotDir   = errors.New("memfs: not a directory")
	errIsDir    = errors.New("memfs: is a directory")
	errExists   = errors.New("memfs: file exists")
	errNotEmpty = errors.New("memfs: directory not empty")
)

type node struct {
	name  string
	dir   bool
	data  []byte
	mtime time.Time
}

// FileInfo describes a file or directory.
type FileInfo struct {
	name  string
	size  int64
	dir   bool
	mtime time.Time
}

func (f *FileInfo) Name() string { return f.name }

func (f *FileInfo) Size() int64 { return f.size }

func (f *FileInfo) Mode() os.FileMode {
	if f.dir {
		return os.ModeDir | 0755
	}
	return 0644
}

func (f *FileInfo) ModTime() time.Time { return f.mtime }

func (f *FileInfo) IsDir() bool { return f.dir }

func (f *FileInfo) Sys() interface{} { return nil }

// FS holds the tree, keyed by absolute path.
type FS struct {
	m     sync.RWMutex
	nodes map[string]*node
}

func New() *FS {
	return &FS{
		nodes: map[string]*node{
			"/": {name: "/", dir: true, mtime: time.Now()},
		},
	}
}

// WriteFile stores content at the absolute path p, creating parents.
func (fs *FS) WriteFile(p string, content []byte) {
	fs.m.Lock()
	defer fs.m.Unlock()

	p = path.Clean("/" + p)

	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		if _, ok := fs.nodes[dir]; !ok {
			fs.nodes[dir] = &node{name: path.Base(dir), dir: true, mtime: time.Now()}
		}

		if dir == "/" {
			break
		}
	}

	fs.nodes[p] = &node{name: path.Base(p), data: append([]byte{}, content...), mtime: time.Now()}
}

// ReadFile returns the content stored at the absolute path p.
func (fs *FS) ReadFile(p string) ([]byte, bool) {
	fs.m.RLock()
	defer fs.m.RUnlock()

	n, ok := fs.nodes[path.Clean("/"+p)]
	if !ok || n.dir {
		return nil, false
	}

	return append([]byte{}, n.data...), true
}

func (fs *FS) NewDir() (backend.Dir, error) {
	return &Dir{fs: fs, cwd: "/"}, nil
}

// Dir is the view of one session.
type Dir struct {
	fs  *FS
	cwd string
}

func (d *Dir) abs(p string) string {
	if !path.IsAbs(p) {
		p = path.Join(d.cwd, p)
	}
	return path.Clean(p)
}

func (d *Dir) Pwd() string {
	return d.cwd
}

func (d *Dir) ChangeDir(p string) error {
	p = d.abs(p)

	d.fs.m.RLock()
	defer d.fs.m.RUnlock()

	n, ok := d.fs.nodes[p]
	if !ok {
		return errNotFound
	} else if !n.dir {
		return errNotDir
	}

	d.cwd = p
	return nil
}

func (d *Dir) Stat(p string) (os.FileInfo, error) {
	p = d.abs(p)

	d.fs.m.RLock()
	defer d.fs.m.RUnlock()

	n, ok := d.fs.nodes[p]
	if !ok {
		return nil, errNotFound
	}

	return &FileInfo{name: n.name, size: int64(len(n.data)), dir: n.dir, mtime: n.mtime}, nil
}

// List returns the entries of directory p, sorted by name.
func (d *Dir) List(p string) ([]os.FileInfo, error) {
	p = d.abs(p)

	d.fs.m.RLock()
	defer d.fs.m.RUnlock()

	if n, ok := d.fs.nodes[p]; !ok {
		return nil, errNotFound
	} else if !n.dir {
		return nil, errNotDir
	}

	list := []os.FileInfo{}
	for k, n := range d.fs.nodes {
		if k != "/" && path.Dir(k) == p {
			list = append(list, &FileInfo{name: n.name, size: int64(len(n.data)), dir: n.dir, mtime: n.mtime})
		}
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list, nil
}

func (d *Dir) MakeDir(p string) (string, error) {
	p = d.abs(p)

	d.fs.m.Lock()
	defer d.fs.m.Unlock()

	if _, ok := d.fs.nodes[p]; ok {
		return "", errExists
	}

	if parent, ok := d.fs.nodes[path.Dir(p)]; !ok || !parent.dir {
		return "", errNotFound
	}

	d.fs.nodes[p] = &node{name: path.Base(p), dir: true, mtime: time.Now()}
	return p, nil
}

func (d *Dir) DeleteDir(p string) error {
	p = d.abs(p)
	if p == "/" {
		return errors.New("memfs: can not delete root '/'")
	}

	d.fs.m.Lock()
	defer d.fs.m.Unlock()

	n, ok := d.fs.nodes[p]
	if !ok {
		return errNotFound
	} else if !n.dir {
		return errNotDir
	}

	for k := range d.fs.nodes {
		if strings.HasPrefix(k, p+"/") {
			return errNotEmpty
		}
	}

	delete(d.fs.nodes, p)
	return nil
}

func (d *Dir) DeleteFile(p string) error {
	p = d.abs(p)

	d.fs.m.Lock()
	defer d.fs.m.Unlock()

	n, ok := d.fs.nodes[p]
	if !ok {
		return errNotFound
	} else if n.dir {
		return errIsDir
	}

	delete(d.fs.nodes, p)
	return nil
}

func (d *Dir) Rename(from, to string) error {
	from, to = d.abs(from), d.abs(to)

	d.fs.m.Lock()
	defer d.fs.m.Unlock()

	n, ok := d.fs.nodes[from]
	if !ok {
		return errNotFound
	} else if n.dir {
		return errIsDir
	}

	if _, ok := d.fs.nodes[to]; ok {
		return errExists
	}

	if parent, ok := d.fs.nodes[path.Dir(to)]; !ok || !parent.dir {
		return errNotFound
	}

	delete(d.fs.nodes, from)
	n.name = path.Base(to)
	d.fs.nodes[to] = n
	return nil
}

func (d *Dir) Open(p string, offset int64) (backend.File, error) {
	p = d.abs(p)

	d.fs.m.RLock()
	defer d.fs.m.RUnlock()

	n, ok := d.fs.nodes[p]
	if !ok {
		return nil, errNotFound
	} else if n.dir {
		return nil, errIsDir
	}

	data := n.data
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}

	return backend.NewReadFile(p, int64(len(data)), bytes.NewReader(data[offset:]), nil), nil
}

func (d *Dir) Create(p string, offset int64, appendData bool) (backend.File, error) {
	p = d.abs(p)

	d.fs.m.RLock()
	n, ok := d.fs.nodes[p]
	parent, pok := d.fs.nodes[path.Dir(p)]
	d.fs.m.RUnlock()

	if ok && n.dir {
		return nil, errIsDir
	}

	if !pok || !parent.dir {
		return nil, errNotFound
	}

	w := &writer{fs: d.fs, path: p}

	if ok {
		existing := n.data
		switch {
		case appendData:
			w.buf.Write(existing)
		case offset > 0:
			if offset > int64(len(existing)) {
				offset = int64(len(existing))
			}
			w.buf.Write(existing[:offset])
		}
	}

	return backend.NewWriteFile(p, &w.buf, w), nil
}

// writer publishes the content on close.
type writer struct {
	fs   *FS
	path string
	buf  bytes.Buffer
}

func (w *writer) Close() error {
	w.fs.m.Lock()
	defer w.fs.m.Unlock()

	w.fs.nodes[w.path] = &node{name: path.Base(w.path), data: w.buf.Bytes(), mtime: time.Now()}
	return nil
}
