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
package command

import (
	"fmt"

	"github.com/honeytrap/ftpd/reply"
	"github.com/pkg/errors"
)

// Error is a failure to be answered on the control connection with Code.
type Error struct {
	Code    reply.Code
	Message string

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Code: %s Mesg: %s", e.Code.Symbol(), e.Detail())
}

// Detail returns the message of the error, or the canonical message of its
// code when empty.
func (e *Error) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.Message()
}

// Cause returns the underlying error, if any.
func (e *Error) Cause() error {
	return e.cause
}

// Reply renders the wire reply of the error.
func (e *Error) Reply() string {
	return reply.Format(e.Code, e.Message)
}

// IsClosing returns true when the control connection must be torn down after
// the reply has been sent.
func (e *Error) IsClosing() bool {
	return e.Code == reply.StatusNotAvailable || e.Code == reply.StatusTransferAborted
}

// NewError returns an error for code with message msg.
func NewError(code reply.Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap returns an error for code caused by err. The message defaults to the
// message of err.
func Wrap(code reply.Code, err error, msg string) *Error {
	if msg == "" && err != nil {
		msg = err.Error()
	}

	return &Error{Code: code, Message: msg, cause: err}
}

// FromError extracts the command error from err, unwrapping causes.
func FromError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func Reply421(msg string) *Error { return NewError(reply.StatusNotAvailable, msg) }
func Reply425(msg string) *Error { return NewError(reply.StatusCanNotOpenDataConn, msg) }
func Reply426(msg string) *Error { return NewError(reply.StatusTransferAborted, msg) }
func Reply450(msg string) *Error { return NewError(reply.StatusFileActionIgnored, msg) }
func Reply451(msg string) *Error { return NewError(reply.StatusActionAborted, msg) }
func Reply452(msg string) *Error { return NewError(reply.StatusInsufficientStorage, msg) }
func Reply500(msg string) *Error { return NewError(reply.StatusBadCommand, msg) }
func Reply501(msg string) *Error { return NewError(reply.StatusBadArguments, msg) }
func Reply502(msg string) *Error { return NewError(reply.StatusNotImplemented, msg) }
func Reply503(msg string) *Error { return NewError(reply.StatusBadSequence, msg) }
func Reply504(msg string) *Error { return NewError(reply.StatusNotImplementedParameter, msg) }
func Reply522(msg string) *Error { return NewError(reply.StatusExtendedPortFailure, msg) }
func Reply530(msg string) *Error { return NewError(reply.StatusNotLoggedIn, msg) }
func Reply532(msg string) *Error { return NewError(reply.StatusStorNeedAccount, msg) }
func Reply534(msg string) *Error { return NewError(reply.StatusPolicyDenied, msg) }
func Reply550(msg string) *Error { return NewError(reply.StatusFileUnavailable, msg) }
func Reply553(msg string) *Error { return NewError(reply.StatusBadFileName, msg) }
