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
package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/pushers"
)

func TestConsole(t *testing.T) {
	buf := &bytes.Buffer{}

	c, err := New(WithWriter(buf))
	if err != nil {
		t.Fatal(err)
	}

	c.Send(event.New(
		event.Category(event.CategoryFTP),
		event.CommandAccepted,
		event.Command("CWD /pub\x01"),
		event.Reply(250),
	))

	c.(*Console).Close()

	out := buf.String()
	if !strings.HasPrefix(out, "ftp > FTP:COMMAND > ") {
		t.Errorf("got %q", out)
	}

	for _, want := range []string{`ftp.command=CWD /pub\x01`, "ftp.reply=250"} {
		if !strings.Contains(out, want) {
			t.Errorf("%q not in %q", want, out)
		}
	}

	if _, ok := pushers.Get("console"); !ok {
		t.Error("console should be registered")
	}
}
