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

	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/command"
	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/reply"
	"github.com/honeytrap/ftpd/session"
	"github.com/honeytrap/ftpd/transfer"
	uuid "github.com/satori/go.uuid"
)

func cmdRetr(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	offset := c.session.ConsumeRestart()

	f, err := c.session.Dir().Open(cmd.Arg(), offset)
	if err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: No such file.", cmd.Arg()))
	}

	return c.startTransfer(cmd, f, "")
}

func cmdStor(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	offset := c.session.ConsumeRestart()

	f, err := c.session.Dir().Create(cmd.Arg(), offset, false)
	if err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: Could not create file.", cmd.Arg()))
	}

	return c.startTransfer(cmd, f, "")
}

func cmdAppe(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	c.session.ConsumeRestart()

	f, err := c.session.Dir().Create(cmd.Arg(), 0, true)
	if err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: Could not open file.", cmd.Arg()))
	}

	return c.startTransfer(cmd, f, "")
}

func cmdStou(c *conn, cmd *command.Command) error {
	c.session.ConsumeRestart()

	name := uuid.NewV4().String()

	f, err := c.session.Dir().Create(name, 0, false)
	if err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, "Could not create unique file.")
	}

	return c.startTransfer(cmd, f, fmt.Sprintf("FILE: %s", name))
}

// startTransfer answers 150 and runs the transfer of f in its own
// goroutine, which writes the final reply.
func (c *conn) startTransfer(cmd *command.Command, f backend.File, msg string) error {
	s := c.session

	if err := c.ctrl.Begin(); err != nil {
		f.Close()
		return command.Wrap(reply.StatusBadSequence, err, "Previous transfer command is not finished yet.")
	}

	p := s.Params()

	if msg == "" {
		msg = fmt.Sprintf("Opening %s mode data connection for %s.", p.Type, f.Name())
	}

	tf := transfer.NewFile(f, s.BlockSize())
	id := uuid.NewV4().String()

	path := cmd.Arg()
	if path == "" {
		path = f.Name()
	}

	if err := c.answer(reply.StatusAboutToSend, msg); err != nil {
		tf.Close()
		c.ctrl.Finish()
		return err
	}

	c.send(
		event.Category(event.CategoryTransfer),
		event.TransferStarted,
		event.Command(cmd.String()),
		event.TransferID(id),
		event.Path(path),
	)

	c.transfers.Add(1)
	go c.runTransfer(&transferJob{
		code:      cmd.Code(),
		id:        id,
		path:      path,
		file:      tf,
		params:    p,
		blockSize: s.BlockSize(),
		secure:    s.IsDataSsl(),
	})

	return nil
}

// transferJob is what a transfer goroutine needs of the session.
type transferJob struct {
	code command.Code
	id   string
	path string
	file *transfer.File

	params    session.DataParams
	blockSize int
	secure    bool
}

func (c *conn) runTransfer(job *transferJob) {
	defer c.transfers.Done()

	tf := job.file

	ch, err := c.data.Open(job.params, job.blockSize, job.secure)
	if err != nil {
		log.Errorf("%s: Error opening data connection: %s", c.session.ID(), err.Error())

		tf.Close()
		aborted := c.ctrl.IsAborted()
		c.endTransfer()

		if aborted {
			c.reply(reply.StatusTransferAborted, "")
		} else {
			c.reply(reply.StatusCanNotOpenDataConn, "")
		}

		c.sendTransfer(event.TransferAborted, job, event.Error(err))
		return
	}

	c.ctrl.SetDataChannel(ch)

	if job.code.IsRetrLike() {
		err = tf.Retrieve(c.ctrl)
	} else {
		err = tf.Store(c.ctrl)
	}

	status := c.ctrl.WaitForEndOfTransfer()

	// the data connection is closed before the final reply
	c.endTransfer()

	if status == transfer.Completed && err == nil {
		c.reply(reply.StatusClosingDataConnection, "")
		c.sendTransfer(event.TransferCompleted, job, event.Bytes(tf.Transferred()))
		return
	}

	if err == transfer.ErrNotReady {
		// the attempt is dropped without a reply
		c.sendTransfer(event.TransferAborted, job, event.Error(err))
		return
	}

	if err == nil {
		err = transfer.ErrTransferAborted
	}

	c.reply(reply.StatusTransferAborted, "")
	c.sendTransfer(event.TransferAborted, job, event.Bytes(tf.Transferred()), event.Error(err))
}

func (c *conn) sendTransfer(t event.Option, job *transferJob, options ...event.Option) {
	c.send(
		event.Category(event.CategoryTransfer),
		t,
		event.TransferID(job.id),
		event.Path(job.path),
		event.NewWith(options...),
	)
}
