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
// Package command contains the command catalog, the command model and the
// validation of command sequences.
package command

import (
	"strings"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("ftpd/command")

// Session is the control session a command belongs to.
type Session interface {
	ID() string
}

// Command is a single command received on the control connection.
type Command struct {
	session Session

	code Code
	verb string
	arg  string

	object interface{}

	extraNext    Code
	hasExtraNext bool
}

// Parse splits line into verb and argument and binds the command to s.
func Parse(s Session, line string) *Command {
	line = strings.TrimRight(line, "\r\n")

	verb, arg := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		verb, arg = line[:i], strings.TrimSpace(line[i+1:])
	}

	return &Command{
		session: s,
		code:    Lookup(verb),
		verb:    strings.ToUpper(verb),
		arg:     arg,
	}
}

// New returns a command for code, mainly used for the internal pseudo
// commands.
func New(s Session, code Code, arg string) *Command {
	return &Command{
		session: s,
		code:    code,
		verb:    code.String(),
		arg:     arg,
	}
}

func (c *Command) Session() Session { return c.session }

func (c *Command) Code() Code { return c.code }

// Verb returns the verb as sent by the client, upper cased.
func (c *Command) Verb() string { return c.verb }

func (c *Command) Arg() string { return c.arg }

func (c *Command) HasArg() bool { return c.arg != "" }

// Object returns the business object attached to the command.
func (c *Command) Object() interface{} { return c.object }

func (c *Command) SetObject(o interface{}) { c.object = o }

// ClearObject releases the business object.
func (c *Command) ClearObject() { c.object = nil }

// SetExtraNextCommand forces the command that must follow c. NOOP clears
// the override.
func (c *Command) SetExtraNextCommand(code Code) {
	if code == NOOP {
		c.extraNext, c.hasExtraNext = NOOP, false
		return
	}

	c.extraNext, c.hasExtraNext = code, true
}

// ExtraNextCommand returns the override, if any.
func (c *Command) ExtraNextCommand() (Code, bool) {
	return c.extraNext, c.hasExtraNext
}

// IsNextCommandValid reports whether next may follow the receiver, which is
// the previously accepted command of the session (nil when there is none).
// A pending override is consumed whatever the outcome.
func (c *Command) IsNextCommandValid(next *Command) bool {
	code := next.Code()

	if code.IsSpecial() {
		log.Debugf("Special command %s accepted", code)
		return true
	}

	if c == nil {
		return false
	}

	if c.hasExtraNext {
		extra := c.extraNext
		c.extraNext, c.hasExtraNext = NOOP, false

		return code == extra || c.code.Allows(code)
	}

	if len(c.code.Next()) == 0 {
		return true
	}

	return c.code.Allows(code)
}

func (c *Command) String() string {
	if c.arg == "" {
		return c.verb
	}

	if c.code == PASS {
		return c.verb + " ****"
	}

	return c.verb + " " + c.arg
}
