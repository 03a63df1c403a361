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

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// CRLF terminates every line written on the control connection.
const CRLF = "\r\n"

// Code is a reply code of the closed FTP reply catalog.
type Code int

// FTP reply codes, defined in RFC 959, RFC 2228 and RFC 2428
const (
	StatusNoStatus      Code = 0
	StatusRestartMarker Code = 110
	StatusReadyMinute   Code = 120
	StatusAlreadyOpen   Code = 125
	StatusAboutToSend   Code = 150

	StatusCommandOK               Code = 200
	StatusCommandNotImplemented   Code = 202
	StatusSystem                  Code = 211
	StatusDirectory               Code = 212
	StatusFile                    Code = 213
	StatusHelp                    Code = 214
	StatusName                    Code = 215
	StatusReady                   Code = 220
	StatusClosing                 Code = 221
	StatusDataConnectionOpen      Code = 225
	StatusClosingDataConnection   Code = 226
	StatusPassiveMode             Code = 227
	StatusExtendedPassiveMode     Code = 229
	StatusLoggedIn                Code = 230
	StatusLoggedInSecure          Code = 232
	StatusSecurityExchangeOK      Code = 234
	StatusRequestedFileActionOK   Code = 250
	StatusPathCreated             Code = 257
	StatusUserOK                  Code = 331
	StatusLoginNeedAccount        Code = 332
	StatusRequestFilePending      Code = 350
	StatusNotAvailable            Code = 421
	StatusCanNotOpenDataConn      Code = 425
	StatusTransferAborted         Code = 426
	StatusSecurityResource        Code = 431
	StatusFileActionIgnored       Code = 450
	StatusActionAborted           Code = 451
	StatusInsufficientStorage     Code = 452
	StatusBadCommand              Code = 500
	StatusBadArguments            Code = 501
	StatusNotImplemented          Code = 502
	StatusBadSequence             Code = 503
	StatusNotImplementedParameter Code = 504
	StatusExtendedPortFailure     Code = 522
	StatusNotLoggedIn             Code = 530
	StatusStorNeedAccount         Code = 532
	StatusProtectionDenied        Code = 533
	StatusPolicyDenied            Code = 534
	StatusSecurityCheckFailed     Code = 535
	StatusProtNotSupported        Code = 536
	StatusFileUnavailable         Code = 550
	StatusPageTypeUnknown         Code = 551
	StatusExceededStorage         Code = 552
	StatusBadFileName             Code = 553
)

type entry struct {
	symbol string
	text   string
}

var catalog = map[Code]entry{
	StatusNoStatus:      {"REPLY_000_SPECIAL_NOSTATUS", "No status."},
	StatusRestartMarker: {"REPLY_110_RESTART_MARKER_REPLY", "Restart marker reply."},
	StatusReadyMinute:   {"REPLY_120_SERVICE_READY_IN_NNN_MINUTES", "Service ready in nnn minutes."},
	StatusAlreadyOpen:   {"REPLY_125_DATA_CONNECTION_ALREADY_OPEN", "Data connection already open; transfer starting."},
	StatusAboutToSend:   {"REPLY_150_FILE_STATUS_OKAY", "File status okay; about to open data connection."},

	// 200
	StatusCommandOK:             {"REPLY_200_COMMAND_OKAY", "Command okay."},
	StatusCommandNotImplemented: {"REPLY_202_COMMAND_NOT_IMPLEMENTED", "Command not implemented, superfluous at this site."},
	StatusSystem:                {"REPLY_211_SYSTEM_STATUS_REPLY", "System status, or system help reply."},
	StatusDirectory:             {"REPLY_212_DIRECTORY_STATUS", "Directory status."},
	StatusFile:                  {"REPLY_213_FILE_STATUS", "File status."},
	StatusHelp:                  {"REPLY_214_HELP_MESSAGE", "This FTP server refers to RFC 959, RFC 775, RFC 2389 and RFC 3659"},
	StatusName:                  {"REPLY_215_NAME_SYSTEM_TYPE", "UNIX Type: L8"},
	StatusReady:                 {"REPLY_220_SERVICE_READY", "Service ready for new user."},
	StatusClosing:               {"REPLY_221_CLOSING_CONTROL_CONNECTION", "Service closing control connection."},
	StatusDataConnectionOpen:    {"REPLY_225_DATA_CONNECTION_OPEN_NO_TRANSFER_IN_PROGRESS", "Data connection open; no transfer in progress."},
	StatusClosingDataConnection: {"REPLY_226_CLOSING_DATA_CONNECTION", "Closing data connection. Requested file action successful."},
	StatusPassiveMode:           {"REPLY_227_ENTERING_PASSIVE_MODE", "Entering Passive Mode."},
	StatusExtendedPassiveMode:   {"REPLY_229_ENTERING_PASSIVE_MODE", "Entering Extended Passive Mode."},
	StatusLoggedIn:              {"REPLY_230_USER_LOGGED_IN", "User logged in, proceed."},
	StatusLoggedInSecure:        {"REPLY_232_USER_LOGGED_IN", "User logged in, authorized by security data exchange."},
	StatusSecurityExchangeOK:    {"REPLY_234_SECURITY_DATA_EXCHANGE_COMPLETE", "Security data exchange complete."},
	StatusRequestedFileActionOK: {"REPLY_250_REQUESTED_FILE_ACTION_OKAY", "Requested file action okay, completed."},
	StatusPathCreated:           {"REPLY_257_PATHNAME_CREATED", "Path created."},

	// 300
	StatusUserOK:             {"REPLY_331_USER_NAME_OKAY_NEED_PASSWORD", "User name okay, need password."},
	StatusLoginNeedAccount:   {"REPLY_332_NEED_ACCOUNT_FOR_LOGIN", "Need account for login."},
	StatusRequestFilePending: {"REPLY_350_REQUESTED_FILE_ACTION_PENDING_FURTHER_INFORMATION", "Requested file action pending further information."},

	// 400
	StatusNotAvailable:        {"REPLY_421_SERVICE_NOT_AVAILABLE_CLOSING_CONTROL_CONNECTION", "Service not available, closing control connection."},
	StatusCanNotOpenDataConn:  {"REPLY_425_CANT_OPEN_DATA_CONNECTION", "Can't open data connection."},
	StatusTransferAborted:     {"REPLY_426_CONNECTION_CLOSED_TRANSFER_ABORTED", "Connection closed; transfer aborted."},
	StatusSecurityResource:    {"REPLY_431_NEED_UNAVAILABLE_RESOURCE_TO_PROCESS_SECURITY", "Need some unavailable resource to process security."},
	StatusFileActionIgnored:   {"REPLY_450_REQUESTED_FILE_ACTION_NOT_TAKEN", "Requested file action not taken."},
	StatusActionAborted:       {"REPLY_451_REQUESTED_ACTION_ABORTED", "Requested action aborted. Local error in processing."},
	StatusInsufficientStorage: {"REPLY_452_REQUESTED_ACTION_NOT_TAKEN", "Insufficient storage space in system."},

	// 500
	StatusBadCommand:              {"REPLY_500_SYNTAX_ERROR_COMMAND_UNRECOGNIZED", "Syntax error, command unrecognized."},
	StatusBadArguments:            {"REPLY_501_SYNTAX_ERROR_IN_PARAMETERS_OR_ARGUMENTS", "Syntax error in parameters or arguments."},
	StatusNotImplemented:          {"REPLY_502_COMMAND_NOT_IMPLEMENTED", "Command not implemented."},
	StatusBadSequence:             {"REPLY_503_BAD_SEQUENCE_OF_COMMANDS", "Bad sequence of commands."},
	StatusNotImplementedParameter: {"REPLY_504_COMMAND_NOT_IMPLEMENTED_FOR_THAT_PARAMETER", "Command not implemented for that parameter."},
	StatusExtendedPortFailure:     {"REPLY_522_EXTENDED_PORT_FAILURE_UNKNOWN_NETWORK_PROTOCOL", "Network protocol not supported, use (1,2)."},
	StatusNotLoggedIn:             {"REPLY_530_NOT_LOGGED_IN", "Not logged in."},
	StatusStorNeedAccount:         {"REPLY_532_NEED_ACCOUNT_FOR_STORING_FILES", "Need account for storing files."},
	StatusProtectionDenied:        {"REPLY_533_COMMAND_PROTECTION_LEVEL_DENIED_FOR_POLICY_REASONS", "Command protection level denied for policy reasons."},
	StatusPolicyDenied:            {"REPLY_534_REQUEST_DENIED_FOR_POLICY_REASONS", "Request denied for policy reasons."},
	StatusSecurityCheckFailed:     {"REPLY_535_FAILED_SECURITY_CHECK", "Failed security check."},
	StatusProtNotSupported:        {"REPLY_536_REQUESTED_PROT_LEVEL_NOT_SUPPORTED", "Requested PROT level not supported by mechanism."},
	StatusFileUnavailable:         {"REPLY_550_REQUESTED_ACTION_NOT_TAKEN", "Requested action not taken. File unavailable."},
	StatusPageTypeUnknown:         {"REPLY_551_REQUESTED_ACTION_ABORTED_PAGE_TYPE_UNKNOWN", "Requested action aborted: page type unknown."},
	StatusExceededStorage:         {"REPLY_552_REQUESTED_FILE_ACTION_ABORTED_EXCEEDED_STORAGE", "Requested file action aborted. Exceeded storage allocation."},
	StatusBadFileName:             {"REPLY_553_REQUESTED_ACTION_NOT_TAKEN_FILE_NAME_NOT_ALLOWED", "Requested action not taken. File name not allowed."},
}

// Lookup returns the catalog entry for the numeric code n.
func Lookup(n int) (Code, bool) {
	c := Code(n)
	_, ok := catalog[c]
	return c, ok
}

// MustLookup returns the catalog code for n and panics when n is not part
// of the catalog.
func MustLookup(n int) Code {
	c, ok := Lookup(n)
	if !ok {
		panic(fmt.Sprintf("reply: undefined reply code %d", n))
	}
	return c
}

func (c Code) entry() entry {
	e, ok := catalog[c]
	if !ok {
		panic(fmt.Sprintf("reply: undefined reply code %d", int(c)))
	}
	return e
}

// Int returns the numeric value of the code.
func (c Code) Int() int {
	return int(c)
}

// Symbol returns the symbolic name, eg. REPLY_226_CLOSING_DATA_CONNECTION.
func (c Code) Symbol() string {
	return c.entry().symbol
}

// Message returns the canonical text of the code, without numeric prefix.
func (c Code) Message() string {
	return c.entry().text
}

func (c Code) String() string {
	return c.Symbol()
}

// Final returns the canonical reply of the code as written on the wire.
func (c Code) Final() string {
	return Format(c, "")
}

// IsClosing returns true for the replies after which the control connection
// is torn down.
func (c Code) IsClosing() bool {
	return c == StatusNotAvailable || c == StatusClosing
}

// Format renders code and text as a wire reply. Text containing newlines
// is rendered as a multi-line reply; an empty text falls back to the
// canonical message of the code.
func Format(c Code, text string) string {
	lines := splitLines(text)
	if len(lines) == 0 {
		lines = []string{c.Message()}
	}

	code := strconv.Itoa(c.Int())

	if len(lines) == 1 {
		return code + " " + lines[0] + CRLF
	}

	var b strings.Builder

	b.WriteString(code)
	b.WriteByte('-')
	b.WriteString(lines[0])
	b.WriteString(CRLF)

	for _, line := range lines[1 : len(lines)-1] {
		if startsWithNumber(line) {
			b.WriteString("  ")
		}

		b.WriteString(line)
		b.WriteString(CRLF)
	}

	b.WriteString(code)
	b.WriteByte(' ')
	b.WriteString(lines[len(lines)-1])
	b.WriteString(CRLF)
	return b.String()
}

// splitLines splits on LF, strips a CR left by CRLF input and drops
// trailing empty lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// startsWithNumber reports whether the first blank delimited token of line
// is an integer, which could be mistaken for a reply code.
func startsWithNumber(line string) bool {
	token := line
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		token = line[:i]
	}

	if token == "" {
		return false
	}

	_, err := strconv.Atoi(token)
	return err == nil
}
