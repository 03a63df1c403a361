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
package server

import (
	"fmt"

	"github.com/honeytrap/ftpd/command"
	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/reply"
)

type handlerFunc func(*conn, *command.Command) error

var handlers map[command.Code]handlerFunc

// receiveLine validates one command line and runs it. Every line gets
// exactly one final reply.
func (c *conn) receiveLine(line string) {
	s := c.session

	cmd := command.Parse(s, line)
	code := cmd.Code()

	log.Debugf("%s: > %s", s.ID(), cmd)

	if code == command.Unknown {
		c.fail(cmd, command.Reply500(fmt.Sprintf("Command %q not understood.", cmd.Verb())))
		return
	}

	if !code.IsSpecial() && c.ctrl.IsExecuting() {
		c.fail(cmd, command.Reply503("Previous transfer command is not finished yet."))
		return
	}

	// an out of sequence command leaves the pending state and the restart
	// marker untouched
	if !s.IsNextCommandValid(cmd) {
		c.fail(cmd, command.Reply503(""))
		return
	}

	if code.RequiresAuth() && !s.IsIdentified() {
		c.fail(cmd, command.Reply530(""))
		return
	}

	h, ok := handlers[code]
	if !ok {
		c.fail(cmd, command.Reply502(""))
		return
	}

	s.SetNextCommand(cmd)

	if err := h(c, cmd); err != nil {
		s.InvalidateCurrentCommand()

		c.fail(cmd, err)
		return
	}

	s.SetCurrentCommandFinished()

	c.send(
		event.CommandAccepted,
		event.Command(cmd.String()),
		event.Reply(s.ReplyCode().Int()),
	)
}

// fail answers cmd with the reply bound to err. Errors outside the command
// taxonomy are answered with 451.
func (c *conn) fail(cmd *command.Command, err error) {
	ce, ok := command.FromError(err)
	if !ok {
		ce = command.Wrap(reply.StatusActionAborted, err, reply.StatusActionAborted.Message())
	}

	log.Warningf("%s: %s: %s", c.session.ID(), cmd, err.Error())

	c.session.SetReplyCode(ce.Code, ce.Message)
	c.session.SetCurrentCommandFinished()

	if werr := c.reply(ce.Code, ce.Message); werr != nil {
		log.Errorf("%s: Error writing reply: %s", c.session.ID(), werr.Error())
		c.closing = true
	}

	if ce.IsClosing() {
		c.closing = true
	}

	c.send(
		event.CommandRejected,
		event.Command(cmd.String()),
		event.Reply(ce.Code.Int()),
		event.Error(ce),
	)
}
