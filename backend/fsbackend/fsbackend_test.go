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
package fsbackend

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/honeytrap/ftpd/backend"
)

func newDir(t *testing.T) (*Dir, string, func()) {
	root, err := ioutil.TempDir("", "fsbackend")
	if err != nil {
		t.Fatal(err)
	}

	fs, err := New(root)
	if err != nil {
		t.Fatal(err)
	}

	d, err := fs.NewDir()
	if err != nil {
		t.Fatal(err)
	}

	return d.(*Dir), fs.root, func() { os.RemoveAll(root) }
}

func TestRealPath(t *testing.T) {
	d, root, cleanup := newDir(t)
	defer cleanup()

	cases := []struct {
		in   string
		want string
	}{
		{"file", "/file"},
		{"/a/b", "/a/b"},
		{"../../etc/passwd", "/etc/passwd"},
		{"/../x", "/x"},
	}

	for _, c := range cases {
		if got := d.RealPath(c.in); got != filepath.Join(root, c.want) {
			t.Errorf("RealPath(%s) got %s", c.in, got)
		}
	}
}

func TestDirectories(t *testing.T) {
	d, _, cleanup := newDir(t)
	defer cleanup()

	p, err := d.MakeDir("pub")
	if err != nil {
		t.Fatal(err)
	}

	if p != "/pub" {
		t.Errorf("MakeDir got %s", p)
	}

	if err := d.ChangeDir("pub"); err != nil {
		t.Fatal(err)
	}

	if d.Pwd() != "/pub" {
		t.Errorf("Pwd got %s", d.Pwd())
	}

	if err := d.ChangeDir(".."); err != nil || d.Pwd() != "/" {
		t.Errorf("ChangeDir(..) got %s (%v)", d.Pwd(), err)
	}

	if err := d.ChangeDir("missing"); err == nil {
		t.Error("ChangeDir to a missing directory should fail")
	}

	if err := d.DeleteDir("pub"); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndOpen(t *testing.T) {
	d, _, cleanup := newDir(t)
	defer cleanup()

	w, err := d.Create("data.txt", 0, false)
	if err != nil {
		t.Fatal(err)
	}

	w.WriteBlock(&backend.Block{Data: []byte("hello ")})
	w.WriteBlock(&backend.Block{Data: []byte("world"), EOF: true})
	w.Close()

	a, err := d.Create("data.txt", 0, true)
	if err != nil {
		t.Fatal(err)
	}

	a.WriteBlock(&backend.Block{Data: []byte("!")})
	a.Close()

	r, err := d.Open("data.txt", 6)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if n, _ := r.Length(); n != 12 {
		t.Errorf("Length got %d", n)
	}

	b, err := r.ReadBlock(64)
	if err != nil {
		t.Fatal(err)
	}

	if string(b.Data) != "world!" || !b.EOF {
		t.Errorf("got %q (eof %v)", b.Data, b.EOF)
	}

	if err := d.Rename("data.txt", "renamed.txt"); err != nil {
		t.Fatal(err)
	}

	if err := d.DeleteFile("renamed.txt"); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Open("renamed.txt", 0); err == nil {
		t.Error("Open of a deleted file should fail")
	}
}
