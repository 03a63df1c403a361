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
// Package backend defines the collaborators of the protocol engine:
// authentication, directory navigation and block based file access.
package backend

import (
	"errors"
	"os"

	"github.com/honeytrap/ftpd/command"
	"github.com/honeytrap/ftpd/reply"
)

// ErrEndOfTransfer is returned by File.ReadBlock when no data is left.
var ErrEndOfTransfer = errors.New("backend: end of transfer")

// Block is a chunk of file content. EOF marks the last block of a file.
type Block struct {
	Data []byte
	EOF  bool
}

// Len returns the number of bytes in the block.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Result is the outcome of an authentication step. When Identified is false,
// Next is the command the client has to send next and Reply the code to
// answer the current command with.
type Result struct {
	Identified bool
	Next       command.Code
	Reply      reply.Code
}

// Auth holds the authentication state of one session.
type Auth interface {
	User(name string) (Result, error)
	Password(password string) (Result, error)
	Account(account string) (Result, error)

	IsIdentified() bool
	UserName() string
	AccountName() string

	// Clear forgets the identity, used by REIN and failed logins.
	Clear()
}

// Authenticator creates the authentication state of new sessions.
type Authenticator interface {
	NewAuth() Auth
}

// File is an open file, read and written block by block.
type File interface {
	Name() string

	// Length returns the size of the file in bytes.
	Length() (int64, error)

	// ReadBlock returns the next block of at most size bytes, or
	// ErrEndOfTransfer when the file is exhausted.
	ReadBlock(size int) (*Block, error)
	WriteBlock(b *Block) error

	Close() error
}

// Dir is the file system view of one session. Paths are absolute or
// relative to the working directory.
type Dir interface {
	Pwd() string
	ChangeDir(path string) error

	Stat(path string) (os.FileInfo, error)

	MakeDir(path string) (string, error)
	DeleteDir(path string) error
	DeleteFile(path string) error
	Rename(from, to string) error

	// Open opens path for reading, starting at offset.
	Open(path string, offset int64) (File, error)

	// Create opens path for writing. Data is written from offset, or after
	// the existing content when appendData is set.
	Create(path string, offset int64, appendData bool) (File, error)
}

// Filesystem creates the file system view of new sessions.
type Filesystem interface {
	NewDir() (Dir, error)
}
