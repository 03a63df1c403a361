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
// Package pushers delivers events to the configured channels.
package pushers

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/honeytrap/ftpd/event"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("ftpd/pushers")

// Channel receives events.
type Channel interface {
	Send(event.Event)
}

// ChannelFunc creates a channel, applying the options to it.
type ChannelFunc func(...func(Channel) error) (Channel, error)

var channels = map[string]ChannelFunc{}

// Register makes a channel type available under key.
func Register(key string, fn ChannelFunc) ChannelFunc {
	channels[key] = fn
	return fn
}

// Get returns the channel type registered as key.
func Get(key string) (ChannelFunc, bool) {
	fn, ok := channels[key]
	return fn, ok
}

// WithConfig returns an option decoding the primitive into the channel.
func WithConfig(meta toml.MetaData, p toml.Primitive) func(Channel) error {
	return func(c Channel) error {
		return meta.PrimitiveDecode(p, c)
	}
}

// Dummy discards all events.
var Dummy Channel = dummy{}

type dummy struct{}

func (dummy) Send(event.Event) {}

// Bus fans events out to all subscribers.
type Bus struct {
	m           sync.RWMutex
	subscribers []Channel
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds channel to the subscribers of the bus.
func (b *Bus) Subscribe(channel Channel) {
	b.m.Lock()
	defer b.m.Unlock()

	b.subscribers = append(b.subscribers, channel)
}

// Send delivers e to all subscribers.
func (b *Bus) Send(e event.Event) {
	b.m.RLock()
	defer b.m.RUnlock()

	for _, subscriber := range b.subscribers {
		subscriber.Send(e)
	}
}

// FromConfig creates the channels configured in the [channel.<name>]
// sections, wraps them in the [[filter]] sections and subscribes them to bus.
// A channel without filter receives all events.
func FromConfig(meta toml.MetaData, chans map[string]toml.Primitive, filters []toml.Primitive, bus *Bus) error {
	created := map[string]Channel{}

	for name, p := range chans {
		x := struct {
			Type string `toml:"type"`
		}{}

		if err := meta.PrimitiveDecode(p, &x); err != nil {
			return fmt.Errorf("Error parsing configuration of channel %s: %s", name, err.Error())
		}

		if x.Type == "" {
			return fmt.Errorf("Error parsing configuration of channel %s: type not set", name)
		}

		fn, ok := Get(x.Type)
		if !ok {
			return fmt.Errorf("Channel %s of type %s not supported", name, x.Type)
		}

		c, err := fn(WithConfig(meta, p))
		if err != nil {
			return fmt.Errorf("Error initializing channel %s: %s", name, err)
		}

		log.Infof("Using channel %s (%s)", name, x.Type)
		created[name] = c
	}

	filtered := map[string]bool{}

	for _, p := range filters {
		x := struct {
			Channels   []string `toml:"channel"`
			Categories []string `toml:"categories"`
			Types      []string `toml:"types"`
			Commands   []string `toml:"commands"`
			Users      []string `toml:"users"`
		}{}

		if err := meta.PrimitiveDecode(p, &x); err != nil {
			return fmt.Errorf("Error parsing filter: %s", err.Error())
		}

		var fns []FilterFunc

		for field, expressions := range map[string][]string{"category": x.Categories, "type": x.Types} {
			if len(expressions) == 0 {
				continue
			}

			fn, err := MatchField(field, expressions)
			if err != nil {
				return fmt.Errorf("Error parsing filter: %s", err.Error())
			}

			fns = append(fns, fn)
		}

		if len(x.Commands) != 0 {
			fns = append(fns, MatchCommands(x.Commands))
		}

		if len(x.Users) != 0 {
			fns = append(fns, MatchUsers(x.Users))
		}

		for _, name := range x.Channels {
			c, ok := created[name]
			if !ok {
				return fmt.Errorf("Filter references unknown channel %s", name)
			}

			filtered[name] = true
			bus.Subscribe(FilterChannel(c, fns...))
		}
	}

	for name, c := range created {
		if filtered[name] {
			continue
		}

		bus.Subscribe(c)
	}

	return nil
}
