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
// Package session holds the state of one control connection.
package session

import (
	"github.com/honeytrap/ftpd/argument"
	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/command"
	"github.com/honeytrap/ftpd/reply"
	logging "github.com/op/go-logging"
	"github.com/rs/xid"
)

var log = logging.MustGetLogger("ftpd/session")

// DefaultBlockSize is the size of the blocks read from files.
const DefaultBlockSize = 64 * 1024

// DataParams are the transfer parameters set by TYPE, MODE and STRU.
type DataParams struct {
	Type      argument.TransferType
	SubType   argument.TransferSubType
	Mode      argument.TransferMode
	Structure argument.TransferStructure
}

// DefaultDataParams returns ASCII NONPRINT, STREAM mode and FILE structure.
func DefaultDataParams() DataParams {
	return DataParams{
		Type:      argument.ASCII,
		SubType:   argument.NONPRINT,
		Mode:      argument.STREAM,
		Structure: argument.FILE,
	}
}

// IsFileStreamBlockAsciiImage returns true for a FILE structure transfer in
// STREAM, BLOCK or ZLIB mode of type ASCII or IMAGE.
func (p DataParams) IsFileStreamBlockAsciiImage() bool {
	if p.Structure != argument.FILE {
		return false
	}

	switch p.Mode {
	case argument.STREAM, argument.BLOCK, argument.ZLIB:
	default:
		return false
	}

	return p.Type == argument.ASCII || p.Type == argument.IMAGE
}

// Restart is the marker set by REST.
type Restart struct {
	Position int64
	Set      bool
}

// Session is the state of one control connection. It is owned by the
// goroutine serving the connection.
type Session struct {
	id string

	current  *command.Command
	previous *command.Command

	currentFinished bool

	auth backend.Auth
	dir  backend.Dir

	params    DataParams
	restart   Restart
	blockSize int

	replyCode reply.Code
	answer    string

	ssl     bool
	dataSsl bool
}

// OptionFn configures a session.
type OptionFn func(*Session)

// WithAuth sets the authentication state.
func WithAuth(a backend.Auth) OptionFn {
	return func(s *Session) {
		s.auth = a
	}
}

// WithDir sets the file system view.
func WithDir(d backend.Dir) OptionFn {
	return func(s *Session) {
		s.dir = d
	}
}

// WithBlockSize sets the size of file blocks.
func WithBlockSize(n int) OptionFn {
	return func(s *Session) {
		if n > 0 {
			s.blockSize = n
		}
	}
}

// New returns a session in the connection state, where only USER, AUTH
// and FEAT are accepted.
func New(options ...OptionFn) *Session {
	s := &Session{
		id:        xid.New().String(),
		params:    DefaultDataParams(),
		blockSize: DefaultBlockSize,
	}

	for _, fn := range options {
		fn(s)
	}

	s.current = command.New(s, command.Connection, "")
	s.currentFinished = true
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Auth() backend.Auth { return s.auth }

func (s *Session) Dir() backend.Dir { return s.dir }

// SetDir replaces the file system view, after a login or REIN.
func (s *Session) SetDir(d backend.Dir) { s.dir = d }

// IsIdentified returns true once the login completed.
func (s *Session) IsIdentified() bool {
	return s.auth != nil && s.auth.IsIdentified()
}

// CurrentCommand returns the last accepted command.
func (s *Session) CurrentCommand() *command.Command { return s.current }

// PreviousCommand returns the command accepted before the current one.
func (s *Session) PreviousCommand() *command.Command { return s.previous }

// IsNextCommandValid validates next against the current command.
func (s *Session) IsNextCommandValid(next *command.Command) bool {
	return s.current.IsNextCommandValid(next)
}

// SetNextCommand accepts c as the current command.
func (s *Session) SetNextCommand(c *command.Command) {
	s.previous = s.current
	s.current = c
	s.currentFinished = false
}

// InvalidateCurrentCommand rolls back to the previous command, which also
// drops a pending restart marker.
func (s *Session) InvalidateCurrentCommand() {
	if s.previous != nil {
		s.current = s.previous
	}

	s.currentFinished = true
	s.restart = Restart{}
}

// SetExtraNextCommand forces the command following the current one. NOOP
// clears a forced command.
func (s *Session) SetExtraNextCommand(code command.Code) {
	if s.current != nil {
		s.current.SetExtraNextCommand(code)
	}
}

// ResetToConnection returns to the state of a new connection, accepting
// USER, AUTH and FEAT.
func (s *Session) ResetToConnection() {
	s.previous = nil
	s.current = command.New(s, command.Connection, "")
	s.currentFinished = true
}

// SetCurrentCommandFinished marks the current command as answered.
func (s *Session) SetCurrentCommandFinished() {
	s.currentFinished = true
}

func (s *Session) IsCurrentCommandFinished() bool {
	return s.currentFinished
}

// Params returns the transfer parameters.
func (s *Session) Params() DataParams { return s.params }

func (s *Session) SetType(t argument.TransferType, st argument.TransferSubType) {
	s.params.Type, s.params.SubType = t, st
}

func (s *Session) SetMode(m argument.TransferMode) { s.params.Mode = m }

func (s *Session) SetStructure(st argument.TransferStructure) { s.params.Structure = st }

// Restart returns the restart marker.
func (s *Session) Restart() Restart { return s.restart }

func (s *Session) SetRestart(pos int64) {
	s.restart = Restart{Position: pos, Set: true}
}

// ConsumeRestart returns the restart position and clears the marker.
func (s *Session) ConsumeRestart() int64 {
	pos := s.restart.Position
	s.restart = Restart{}
	return pos
}

// BlockSize returns the size of the blocks to read files with.
func (s *Session) BlockSize() int { return s.blockSize }

func (s *Session) SetSsl(b bool) { s.ssl = b }

func (s *Session) IsSsl() bool { return s.ssl }

// SetDataSsl sets PROT P (true) or PROT C (false).
func (s *Session) SetDataSsl(b bool) { s.dataSsl = b }

func (s *Session) IsDataSsl() bool { return s.dataSsl }

// SetReplyCode records the reply for the current command. An empty answer
// uses the canonical message of code.
func (s *Session) SetReplyCode(code reply.Code, answer string) {
	s.replyCode = code
	s.answer = answer
}

func (s *Session) ReplyCode() reply.Code { return s.replyCode }

// Answer returns the wire reply of the recorded reply code.
func (s *Session) Answer() string {
	return reply.Format(s.replyCode, s.answer)
}

// Rein reinitializes the session as after REIN: the login and the transfer
// parameters are reset, the data protection level is kept.
func (s *Session) Rein() {
	if s.auth != nil {
		s.auth.Clear()
	}

	s.params = DefaultDataParams()
	s.restart = Restart{}
	s.ResetToConnection()

	log.Debugf("Session %s reinitialized", s.id)
}
