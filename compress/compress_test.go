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
package compress

import (
	"bytes"
	"io/ioutil"
	"strings"
	"testing"
)

func TestStream(t *testing.T) {
	content := strings.Repeat("all work and no play makes jack a dull boy\n", 100)

	buf := &bytes.Buffer{}

	w, err := NewWriter(buf, BestCompression)
	if err != nil {
		t.Fatal(err)
	}

	w.Write([]byte(content[:1000]))
	w.Write([]byte(content[1000:]))

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if buf.Len() >= len(content) {
		t.Errorf("compressed %d bytes into %d", len(content), buf.Len())
	}

	data, err := ioutil.ReadAll(NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != content {
		t.Error("content mismatch")
	}
}

func TestEmptyStream(t *testing.T) {
	data, err := ioutil.ReadAll(NewReader(&bytes.Buffer{}))
	if err != nil || len(data) != 0 {
		t.Errorf("got %q (%v)", data, err)
	}

	if _, err := NewWriter(&bytes.Buffer{}, 42); err == nil {
		t.Error("level 42 should be rejected")
	}
}
