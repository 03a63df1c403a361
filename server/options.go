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
package server

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/honeytrap/ftpd/auth"
	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/config"
	"github.com/honeytrap/ftpd/pushers"
	"github.com/honeytrap/ftpd/server/profiler"
	"github.com/pkg/profile"
)

// Options is the [server] section of the configuration.
type Options struct {
	Listen string `toml:"listen"`
	Name   string `toml:"name"`
	Banner string `toml:"banner"`

	PassivePorts string `toml:"passive-port-range"`
	PublicIP     string `toml:"public-ip"`

	BlockSize   config.Size  `toml:"block-size"`
	RateLimit   config.Size  `toml:"rate-limit"`
	DataTimeout config.Delay `toml:"data-timeout"`
	IdleTimeout config.Delay `toml:"idle-timeout"`

	ExplicitTLS bool   `toml:"explicit-tls"`
	Certificate string `toml:"certificate"`
	Key         string `toml:"key"`

	Root      string      `toml:"root"`
	Anonymous bool        `toml:"anonymous"`
	Users     []auth.User `toml:"users"`
}

// OptionFn configures a server.
type OptionFn func(*Server) error

// WithConfig applies the [server] section and subscribes the configured
// channels.
func WithConfig(c *config.Config) OptionFn {
	return func(s *Server) error {
		if err := c.PrimitiveDecode(c.Server, &s.Options); err != nil {
			return err
		}

		return pushers.FromConfig(c.MetaData, c.Channels, c.Filters, s.bus)
	}
}

// WithOptions changes the options directly.
func WithOptions(fn func(*Options)) OptionFn {
	return func(s *Server) error {
		fn(&s.Options)
		return nil
	}
}

func WithMemoryProfiler() OptionFn {
	return func(s *Server) error {
		s.profiler = profiler.New(s.dataDir, "", profile.MemProfile)
		return nil
	}
}

func WithCPUProfiler() OptionFn {
	return func(s *Server) error {
		s.profiler = profiler.New(s.dataDir, "127.0.0.1:6060", profile.CPUProfile)
		return nil
	}
}

// WithFilesystem serves fs instead of the configured root.
func WithFilesystem(fs backend.Filesystem) OptionFn {
	return func(s *Server) error {
		s.fs = fs
		return nil
	}
}

// WithAuthenticator replaces the configured users.
func WithAuthenticator(a backend.Authenticator) OptionFn {
	return func(s *Server) error {
		s.authn = a
		return nil
	}
}

// WithChannel subscribes c to the events of the server.
func WithChannel(c pushers.Channel) OptionFn {
	return func(s *Server) error {
		s.bus.Subscribe(c)
		return nil
	}
}

// WithDataDir sets the directory holding the certificate store, creating
// it when needed.
func WithDataDir(dir string) (OptionFn, error) {
	p, err := expand(dir)
	if err != nil {
		return nil, err
	}

	p, err = filepath.Abs(p)
	if err != nil {
		return nil, err
	}

	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		err = os.Mkdir(p, 0755)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return func(s *Server) error {
		s.dataDir = p
		return nil
	}, nil
}

func expand(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, path[1:]), nil
}
