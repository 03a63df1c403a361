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
// Package event contains the events emitted by the ftp server.
package event

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Event is the record of something that happened on a control or data
// connection. Fields are keyed by name, like "type", "ftp.command" or
// "ftp.bytes". An Event is safe for concurrent use.
type Event struct {
	sm *sync.Map
}

// New returns an event dated now with the options applied.
func New(opts ...Option) Event {
	e := Event{
		sm: new(sync.Map),
	}

	e.sm.Store("date", time.Now())

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		opt(e)
	}

	return e
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToMap(e))
}

func (e Event) Range(fx func(interface{}, interface{}) bool) {
	e.sm.Range(fx)
}

func (e Event) Store(s string, v interface{}) {
	e.sm.Store(s, v)
}

func (e Event) Load(s string) (interface{}, bool) {
	return e.sm.Load(s)
}

func (e Event) Has(s string) bool {
	_, ok := e.sm.Load(s)
	return ok
}

// Get returns the field as a string, empty when missing or of another type.
func (e Event) Get(s string) string {
	v, _ := e.sm.Load(s)
	str, _ := v.(string)
	return str
}

// Int returns the field as an int64. Ports and reply codes are stored as
// int, byte counts as int64.
func (e Event) Int(s string) (int64, bool) {
	v, ok := e.sm.Load(s)
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// Date returns the creation time of the event.
func (e Event) Date() time.Time {
	v, _ := e.sm.Load("date")
	t, _ := v.(time.Time)
	return t
}

// Session returns the id of the control connection the event belongs to.
func (e Event) Session() string {
	return e.Get("ftp.sessionid")
}

// Verb returns the upper cased verb of the command, empty for events
// without one.
func (e Event) Verb() string {
	fields := strings.Fields(e.Get("ftp.command"))
	if len(fields) == 0 {
		return ""
	}

	return strings.ToUpper(fields[0])
}

// UserName returns the user the session was logged in as.
func (e Event) UserName() string {
	return e.Get("ftp.user")
}

// Transferred returns the number of bytes moved by a transfer.
func (e Event) Transferred() int64 {
	n, _ := e.Int("ftp.bytes")
	return n
}
