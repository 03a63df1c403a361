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
package bolt

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/honeytrap/ftpd/event"
	uuid "github.com/satori/go.uuid"
)

func TestHistory(t *testing.T) {
	dir, err := ioutil.TempDir("", "history")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	h, err := Open(filepath.Join(dir, "history.db"), DefaultBucket)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	id := uuid.NewV4().String()

	for _, typ := range []event.Option{event.TransferStarted, event.TransferCompleted, event.TransferAborted} {
		h.Send(event.New(
			event.Category(event.CategoryTransfer),
			typ,
			event.TransferID(id),
			event.Bytes(42),
		))
	}

	if n, err := h.Len(); err != nil || n != 3 {
		t.Fatalf("got %d (%v)", n, err)
	}

	all, err := h.Get(1, -1)
	if err != nil {
		t.Fatal(err)
	}

	if len(all) != 3 || all[0]["type"] != "FTP:TRANSFER:STARTED" || all[2]["type"] != "FTP:TRANSFER:ABORTED" {
		t.Errorf("got %v", all)
	}

	if all[1]["ftp.transfer-id"] != id || all[1]["ftp.bytes"] != float64(42) {
		t.Errorf("got %v", all[1])
	}

	page, err := h.Get(2, 1)
	if err != nil {
		t.Fatal(err)
	}

	if len(page) != 1 || page[0]["type"] != "FTP:TRANSFER:COMPLETED" {
		t.Errorf("got %v", page)
	}
}
