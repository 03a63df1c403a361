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

import "strings"

// Code identifies a command verb, or one of the internal pseudo commands.
type Code int

// Protocol verbs, followed by the internal pseudo commands.
const (
	Connection Code = iota
	USER
	PASS
	ACCT
	CWD
	CDUP
	SMNT
	REIN
	QUIT
	PORT
	PASV
	TYPE
	STRU
	MODE
	RETR
	STOR
	STOU
	APPE
	ALLO
	REST
	RNFR
	RNTO
	ABOR
	DELE
	RMD
	MKD
	PWD
	LIST
	NLST
	SITE
	SYST
	STAT
	HELP
	NOOP
	FEAT
	OPTS
	EPRT
	EPSV
	MDTM
	SIZE
	MLST
	MLSD
	AUTH
	PBSZ
	PROT
	CCC
	XCWD
	XCUP
	XMKD
	XPWD
	XRMD
	Unknown
	IncorrectSequence
	InternalShutdown
)

type definition struct {
	name    string
	next    []Code
	special bool
	open    bool
}

var definitions = [...]definition{
	Connection:        {name: "Connection", next: []Code{USER, AUTH, FEAT}, open: true},
	USER:              {name: "USER", next: []Code{PASS}, open: true},
	PASS:              {name: "PASS", open: true},
	ACCT:              {name: "ACCT", open: true},
	CWD:               {name: "CWD"},
	CDUP:              {name: "CDUP"},
	SMNT:              {name: "SMNT"},
	REIN:              {name: "REIN", open: true},
	QUIT:              {name: "QUIT", special: true, open: true},
	PORT:              {name: "PORT"},
	PASV:              {name: "PASV"},
	TYPE:              {name: "TYPE"},
	STRU:              {name: "STRU"},
	MODE:              {name: "MODE"},
	RETR:              {name: "RETR"},
	STOR:              {name: "STOR"},
	STOU:              {name: "STOU"},
	APPE:              {name: "APPE"},
	ALLO:              {name: "ALLO"},
	REST:              {name: "REST", next: []Code{RETR, STOR, STOU, APPE}},
	RNFR:              {name: "RNFR", next: []Code{RNTO}},
	RNTO:              {name: "RNTO"},
	ABOR:              {name: "ABOR", special: true, open: true},
	DELE:              {name: "DELE"},
	RMD:               {name: "RMD"},
	MKD:               {name: "MKD"},
	PWD:               {name: "PWD"},
	LIST:              {name: "LIST"},
	NLST:              {name: "NLST"},
	SITE:              {name: "SITE"},
	SYST:              {name: "SYST", open: true},
	STAT:              {name: "STAT", special: true, open: true},
	HELP:              {name: "HELP", open: true},
	NOOP:              {name: "NOOP", special: true, open: true},
	FEAT:              {name: "FEAT", open: true},
	OPTS:              {name: "OPTS", open: true},
	EPRT:              {name: "EPRT"},
	EPSV:              {name: "EPSV"},
	MDTM:              {name: "MDTM"},
	SIZE:              {name: "SIZE"},
	MLST:              {name: "MLST"},
	MLSD:              {name: "MLSD"},
	AUTH:              {name: "AUTH", next: []Code{USER, PBSZ, PROT}, open: true},
	PBSZ:              {name: "PBSZ", next: []Code{PROT}, open: true},
	PROT:              {name: "PROT", open: true},
	CCC:               {name: "CCC", open: true},
	XCWD:              {name: "XCWD"},
	XCUP:              {name: "XCUP"},
	XMKD:              {name: "XMKD"},
	XPWD:              {name: "XPWD"},
	XRMD:              {name: "XRMD"},
	Unknown:           {name: "Unknown", open: true},
	IncorrectSequence: {name: "IncorrectSequence", open: true},
	InternalShutdown:  {name: "InternalShutdown", open: true},
}

var verbs = map[string]Code{}

func init() {
	for c := USER; c < Unknown; c++ {
		verbs[definitions[c].name] = c
	}
}

// Lookup returns the code of verb, case insensitive. Unknown verbs map to
// Unknown.
func Lookup(verb string) Code {
	if c, ok := verbs[strings.ToUpper(verb)]; ok {
		return c
	}
	return Unknown
}

func (c Code) String() string {
	return definitions[c].name
}

// Next returns the commands allowed to follow c. An empty set allows any
// command.
func (c Code) Next() []Code {
	return definitions[c].next
}

// Allows returns true when next is a member of the next valid set of c.
func (c Code) Allows(next Code) bool {
	for _, n := range definitions[c].next {
		if n == next {
			return true
		}
	}
	return false
}

// IsSpecial returns true for QUIT, ABOR, STAT and NOOP, which are accepted
// whatever the previous command.
func (c Code) IsSpecial() bool {
	return definitions[c].special
}

// RequiresAuth returns true when the command may only be issued by an
// identified session.
func (c Code) RequiresAuth() bool {
	return !definitions[c].open
}

// IsRetrLike returns true for the commands sending a file to the client.
func (c Code) IsRetrLike() bool {
	return c == RETR
}

// IsStoreLike returns true for the commands receiving a file from the client.
func (c Code) IsStoreLike() bool {
	switch c {
	case STOR, STOU, APPE:
		return true
	}
	return false
}

// IsListLike returns true for the directory listing commands.
func (c Code) IsListLike() bool {
	switch c {
	case LIST, NLST, MLSD:
		return true
	}
	return false
}

// IsTransfer returns true for all commands using the data connection.
func (c Code) IsTransfer() bool {
	return c.IsRetrLike() || c.IsStoreLike() || c.IsListLike()
}

// IsSslOrAuth returns true for the security and login commands.
func (c Code) IsSslOrAuth() bool {
	switch c {
	case AUTH, PBSZ, PROT, CCC, USER, PASS, ACCT:
		return true
	}
	return false
}
