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
package reply

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		code Code
		in   string
		want string
	}{
		{StatusClosingDataConnection, "Closing data connection", "226 Closing data connection\r\n"},
		{StatusHelp, "line1\nline2", "214-line1\r\n214 line2\r\n"},
		{StatusHelp, "line1\r\nline2\r\n", "214-line1\r\n214 line2\r\n"},
		{StatusSystem, "Features:\n EPRT\n EPSV\nEnd", "211-Features:\r\n EPRT\r\n EPSV\r\n211 End\r\n"},
		{StatusSystem, "status\n230 logged in\nfree text\nEnd", "211-status\r\n  230 logged in\r\nfree text\r\n211 End\r\n"},
		{StatusSystem, "status\n42\nEnd", "211-status\r\n  42\r\n211 End\r\n"},
		{StatusSystem, "status\n200\tok\nEnd", "211-status\r\n  200\tok\r\n211 End\r\n"},
		{StatusSystem, "status\n 200 ok\nEnd", "211-status\r\n 200 ok\r\n211 End\r\n"},
		{StatusBadSequence, "", "503 Bad sequence of commands.\r\n"},
		{StatusBadSequence, "\n", "503 Bad sequence of commands.\r\n"},
		{StatusCommandOK, "single\n", "200 single\r\n"},
	}

	for _, c := range cases {
		if got := Format(c.code, c.in); got != c.want {
			t.Errorf("Format(%d, %q) got %q, want %q", c.code, c.in, got, c.want)
		}
	}
}

func TestLookup(t *testing.T) {
	if c, ok := Lookup(550); !ok || c != StatusFileUnavailable {
		t.Errorf("Lookup(550) got %v %v", c, ok)
	}

	if _, ok := Lookup(999); ok {
		t.Error("Lookup(999) should not be found")
	}

	if got := StatusBadSequence.Symbol(); got != "REPLY_503_BAD_SEQUENCE_OF_COMMANDS" {
		t.Errorf("Symbol() got %s", got)
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustLookup(299) should panic")
		}
	}()

	MustLookup(299)
}

func TestFinal(t *testing.T) {
	if got := StatusReady.Final(); got != "220 Service ready for new user.\r\n" {
		t.Errorf("Final() got %q", got)
	}

	if !StatusNotAvailable.IsClosing() || StatusBadSequence.IsClosing() {
		t.Error("IsClosing mismatch")
	}
}
