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
package event

import (
	"net"
)

// Event types emitted by the server.
var (
	ServiceStarted   = Type("SERVICE:STARTED")
	ServiceEnded     = Type("SERVICE:ENDED")
	ConnectionOpened = Type("CONNECTION:OPENED")
	ConnectionClosed = Type("CONNECTION:CLOSED")

	CommandAccepted = Type("FTP:COMMAND")
	CommandRejected = Type("FTP:COMMAND:REJECTED")
	LoginSucceeded  = Type("FTP:LOGIN")
	LoginFailed     = Type("FTP:LOGIN:FAILED")

	TransferStarted   = Type("FTP:TRANSFER:STARTED")
	TransferCompleted = Type("FTP:TRANSFER:COMPLETED")
	TransferAborted   = Type("FTP:TRANSFER:ABORTED")
)

// Categories of events, channels filter on these.
const (
	CategoryFTP      = "ftp"
	CategoryTransfer = "transfer"
)

// Option defines a function type for events modifications.
type Option func(Event)

// Apply applies all options to the Event returning it after it's done.
func Apply(e Event, opts ...Option) Event {
	for _, option := range opts {
		option(e)
	}

	return e
}

// NewWith combines the set of option into a single option which
// applies all the series when called.
func NewWith(opts ...Option) Option {
	return func(e Event) {
		for _, option := range opts {
			option(e)
		}
	}
}

// Category returns an option for setting the category value.
func Category(s string) Option {
	return func(m Event) {
		m.Store("category", s)
	}
}

// Error returns an option for setting the error value.
func Error(err error) Option {
	return func(m Event) {
		if err == nil {
			return
		}
		m.Store("error", err.Error())
	}
}

// Type returns an option for setting the type value.
func Type(s string) Option {
	return func(m Event) {
		m.Store("type", s)
	}
}

// SourceAddr returns an option for setting the source-ip value.
func SourceAddr(addr net.Addr) Option {
	return func(m Event) {
		if ta, ok := addr.(*net.TCPAddr); ok {
			m.Store("source-ip", ta.IP.String())
			m.Store("source-port", ta.Port)
		} else if addr != nil {
			m.Store("source-addr", addr.String())
		}
	}
}

// DestinationAddr returns an option for setting the destination-ip value.
func DestinationAddr(addr net.Addr) Option {
	return func(m Event) {
		if ta, ok := addr.(*net.TCPAddr); ok {
			m.Store("destination-ip", ta.IP.String())
			m.Store("destination-port", ta.Port)
		} else if addr != nil {
			m.Store("destination-addr", addr.String())
		}
	}
}

// SessionID sets the control session of the event.
func SessionID(id string) Option {
	return func(m Event) {
		m.Store("ftp.sessionid", id)
	}
}

// Command sets the command line of the event. Passwords are masked by the
// caller.
func Command(cmd string) Option {
	return func(m Event) {
		m.Store("ftp.command", cmd)
	}
}

// User sets the user name of the event.
func User(name string) Option {
	return func(m Event) {
		m.Store("ftp.user", name)
	}
}

// TransferID sets the id shared by all events of one transfer.
func TransferID(id string) Option {
	return func(m Event) {
		m.Store("ftp.transfer-id", id)
	}
}

// Path sets the file of a transfer.
func Path(p string) Option {
	return func(m Event) {
		m.Store("ftp.path", p)
	}
}

// Bytes sets the amount of data moved by a transfer.
func Bytes(n int64) Option {
	return func(m Event) {
		m.Store("ftp.bytes", n)
	}
}

// Reply sets the reply code answered to the command.
func Reply(code int) Option {
	return func(m Event) {
		m.Store("ftp.reply", code)
	}
}

// Custom returns an option for setting the custom key-value pair.
func Custom(name string, value interface{}) Option {
	return func(m Event) {
		m.Store(name, value)
	}
}

// ToMap returns a map containing all available data which map
// a string key and value type.
func ToMap(ev Event) map[string]interface{} {
	mp := make(map[string]interface{})

	ev.Range(func(key, value interface{}) bool {
		if keyName, ok := key.(string); ok {
			mp[keyName] = value
		}
		return true
	})

	return mp
}
