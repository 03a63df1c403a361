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
package pushers

import (
	"regexp"
	"strings"

	"github.com/honeytrap/ftpd/event"
	"github.com/pkg/errors"
)

// FilterFunc decides whether an event is delivered.
type FilterFunc func(event.Event) bool

// filteredChannel delivers to Channel the events accepted by every filter.
type filteredChannel struct {
	Channel

	filters []FilterFunc
}

func (fc filteredChannel) Send(e event.Event) {
	for _, fn := range fc.filters {
		if !fn(e) {
			return
		}
	}

	fc.Channel.Send(e)
}

// FilterChannel returns a channel delivering to channel only the events
// accepted by all of fns.
func FilterChannel(channel Channel, fns ...FilterFunc) Channel {
	if len(fns) == 0 {
		return channel
	}

	return filteredChannel{
		Channel: channel,
		filters: fns,
	}
}

// MatchField accepts the events where the string value of field matches
// any of the expressions, like category = "transfer" or type = "LOGIN".
func MatchField(field string, expressions []string) (FilterFunc, error) {
	matchers := make([]*regexp.Regexp, len(expressions))

	for i, expr := range expressions {
		rx, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Wrapf(err, "filter on %s", field)
		}

		matchers[i] = rx
	}

	return func(e event.Event) bool {
		val := e.Get(field)

		for _, rx := range matchers {
			if rx.MatchString(val) {
				return true
			}
		}

		return false
	}, nil
}

// MatchCommands accepts the events of the commands named by verbs,
// regardless of case. Events without a command are dropped.
func MatchCommands(verbs []string) FilterFunc {
	accepted := map[string]bool{}
	for _, v := range verbs {
		accepted[strings.ToUpper(v)] = true
	}

	return func(e event.Event) bool {
		return accepted[e.Verb()]
	}
}

// MatchUsers accepts the events of sessions logged in as one of names.
func MatchUsers(names []string) FilterFunc {
	accepted := map[string]bool{}
	for _, n := range names {
		accepted[n] = true
	}

	return func(e event.Event) bool {
		return accepted[e.UserName()]
	}
}
