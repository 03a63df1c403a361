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
package file

import (
	"bufio"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/honeytrap/ftpd/event"
)

func TestRotate(t *testing.T) {
	dir, err := ioutil.TempDir("", "ftpd-file")
	if err != nil {
		t.Fatal(err)
	}

	defer os.RemoveAll(dir)

	name := filepath.Join(dir, "events.log")

	c, err := New(WithFile(name), WithMaxSize(1024))
	if err != nil {
		t.Fatalf("Error creating file channel: %s", err)
	}

	for i := 0; i < 100; i++ {
		c.Send(event.New(
			event.Category(event.CategoryTransfer),
			event.TransferCompleted,
			event.SessionID("session"),
			event.Bytes(int64(i)),
		))
	}

	if err := c.(*File).Close(); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(name + "*")
	if err != nil {
		t.Fatal(err)
	}

	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}

	lines := 0

	for _, file := range files {
		fi, err := os.Stat(file)
		if err != nil {
			t.Fatal(err)
		}

		if fi.Size() > 1024 {
			t.Errorf("%s has %d bytes", file, fi.Size())
		}

		f, err := os.Open(file)
		if err != nil {
			t.Fatal(err)
		}

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var m map[string]interface{}
			if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
				t.Errorf("invalid line %q: %s", scanner.Text(), err)
			}

			if m["ftp.sessionid"] != "session" {
				t.Errorf("unexpected event %v", m)
			}

			lines++
		}

		f.Close()
	}

	if lines != 100 {
		t.Errorf("got %d events, want 100", lines)
	}
}

func TestMissingFilename(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("expected an error without filename")
	}
}
