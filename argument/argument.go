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
// Package argument parses the single character parameters of the TYPE,
// MODE and STRU commands.
package argument

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// InvalidError is returned when a character does not belong to a family.
type InvalidError struct {
	Family string
	Char   byte
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("argument: invalid %s argument %q", e.Family, e.Char)
}

// parse returns the index of c, case insensitive, within chars.
func parse(family, chars string, c byte) (int, error) {
	up := c
	if 'a' <= up && up <= 'z' {
		up -= 'a' - 'A'
	}

	if i := strings.IndexByte(chars, up); i >= 0 {
		return i, nil
	}

	return 0, &InvalidError{Family: family, Char: c}
}

// TransferType is the representation type set by TYPE.
type TransferType int

const (
	ASCII TransferType = iota
	EBCDIC
	IMAGE
	LENGTH
)

const typeChars = "AEIL"

var typeNames = [...]string{"ASCII", "EBCDIC", "IMAGE", "LENGTH"}

// ParseType parses A, E, I or L.
func ParseType(c byte) (TransferType, error) {
	i, err := parse("type", typeChars, c)
	return TransferType(i), err
}

// Char returns the protocol character of the type.
func (t TransferType) Char() byte { return typeChars[t] }

func (t TransferType) String() string { return typeNames[t] }

// Charset returns the name of the text encoding used on the data
// connection. IMAGE and LENGTH use the platform charset.
func (t TransferType) Charset() string {
	switch t {
	case ASCII:
		return "US-ASCII"
	case EBCDIC:
		return "IBM037"
	default:
		return "UTF-8"
	}
}

// Encoding returns the encoding to transcode file content with, nil when
// the content is sent as is.
func (t TransferType) Encoding() encoding.Encoding {
	if t == EBCDIC {
		return charmap.CodePage037
	}
	return nil
}

// TransferSubType is the format control of ASCII and EBCDIC types.
type TransferSubType int

const (
	NONPRINT TransferSubType = iota
	TELNET
	CARRIAGE
)

const subTypeChars = "NTC"

var subTypeNames = [...]string{"NONPRINT", "TELNET", "CARRIAGE"}

// ParseSubType parses N, T or C.
func ParseSubType(c byte) (TransferSubType, error) {
	i, err := parse("subtype", subTypeChars, c)
	return TransferSubType(i), err
}

func (t TransferSubType) Char() byte { return subTypeChars[t] }

func (t TransferSubType) String() string { return subTypeNames[t] }

// TransferMode is the transmission mode set by MODE.
type TransferMode int

const (
	STREAM TransferMode = iota
	BLOCK
	COMPRESSED
	ZLIB
)

const modeChars = "SBCZ"

var modeNames = [...]string{"STREAM", "BLOCK", "COMPRESSED", "ZLIB"}

// ParseMode parses S, B, C or Z.
func ParseMode(c byte) (TransferMode, error) {
	i, err := parse("mode", modeChars, c)
	return TransferMode(i), err
}

func (m TransferMode) Char() byte { return modeChars[m] }

func (m TransferMode) String() string { return modeNames[m] }

// TransferStructure is the file structure set by STRU.
type TransferStructure int

const (
	FILE TransferStructure = iota
	RECORD
	PAGE
)

const structureChars = "FRP"

var structureNames = [...]string{"FILE", "RECORD", "PAGE"}

// ParseStructure parses F, R or P.
func ParseStructure(c byte) (TransferStructure, error) {
	i, err := parse("structure", structureChars, c)
	return TransferStructure(i), err
}

func (s TransferStructure) Char() byte { return structureChars[s] }

func (s TransferStructure) String() string { return structureNames[s] }

// ParseTypeArgument parses the complete argument of TYPE, eg. "A", "A N",
// "E T" or "L 8". The byte size of LENGTH is accepted and ignored.
func ParseTypeArgument(arg string) (TransferType, TransferSubType, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 || len(fields[0]) != 1 {
		return ASCII, NONPRINT, fmt.Errorf("argument: invalid type argument %q", arg)
	}

	t, err := ParseType(fields[0][0])
	if err != nil {
		return ASCII, NONPRINT, err
	}

	if len(fields) == 1 || t == IMAGE || t == LENGTH {
		return t, NONPRINT, nil
	}

	if len(fields[1]) != 1 {
		return t, NONPRINT, fmt.Errorf("argument: invalid subtype argument %q", fields[1])
	}

	st, err := ParseSubType(fields[1][0])
	return t, st, err
}
