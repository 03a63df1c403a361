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
// Package console prints events to the terminal.
package console

import (
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/pushers"
)

var (
	_ = pushers.Register("console", New)
)

// New returns a console channel writing to stdout.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	c := Console{
		Writer: os.Stdout,
		ch:     make(chan map[string]interface{}, 100),
		done:   make(chan struct{}),
	}

	for _, optionFn := range options {
		if err := optionFn(&c); err != nil {
			return nil, err
		}
	}

	go c.run()

	return &c, nil
}

// WithWriter sets the destination of the console.
func WithWriter(w io.Writer) func(pushers.Channel) error {
	return func(c pushers.Channel) error {
		c.(*Console).Writer = w
		return nil
	}
}

// Console writes one line per event.
type Console struct {
	io.Writer `toml:"-"`

	ch   chan map[string]interface{}
	done chan struct{}
}

func printify(s string) string {
	o := ""
	for _, rune := range s {
		if !unicode.IsPrint(rune) {
			buf := make([]byte, 4)

			n := utf8.EncodeRune(buf, rune)
			o += fmt.Sprintf("\\x%s", hex.EncodeToString(buf[:n]))
			continue
		}

		o += string(rune)
	}

	return o
}

func (b *Console) run() {
	defer close(b.done)

	for e := range b.ch {
		var params []string
		for k, v := range e {
			if k == "type" || k == "category" {
				continue
			}

			switch x := v.(type) {
			case net.IP:
				params = append(params, fmt.Sprintf("%s=%s", k, x.String()))
			case uint32, uint16, uint8, uint,
				int64, int32, int16, int8, int:
				params = append(params, fmt.Sprintf("%s=%d", k, v))
			case time.Time:
				params = append(params, fmt.Sprintf("%s=%s", k, x.Format(time.RFC3339)))
			case string:
				params = append(params, fmt.Sprintf("%s=%s", k, printify(x)))
			default:
				params = append(params, fmt.Sprintf("%s=%#v", k, v))
			}
		}
		sort.Strings(params)
		fmt.Fprintf(b.Writer, "%s > %s > %s\n", e["category"], e["type"], strings.Join(params, ", "))
	}
}

// Send queues e for printing.
func (b *Console) Send(e event.Event) {
	b.ch <- event.ToMap(e)
}

// Close prints the pending events and stops the console.
func (b *Console) Close() error {
	close(b.ch)
	<-b.done
	return nil
}
