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
// Package config loads the toml configuration and sets up logging.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("ftpd/config")

var format = logging.MustStringFormatter(
	"%{color}%{time:15:04:05.000} %{module} ▶ %{level:.4s} %{id:03x} %{message}%{color:reset}",
)

// Logging is one [[logging]] backend.
type Logging struct {
	Output string `toml:"output"`
	Level  string `toml:"level"`
}

// Config holds the configuration. Sections are kept as primitives and decoded
// by the components owning them.
type Config struct {
	toml.MetaData

	Server toml.Primitive `toml:"server"`

	Channels map[string]toml.Primitive `toml:"channel"`
	Filters  []toml.Primitive          `toml:"filter"`

	Logging []Logging `toml:"logging"`
}

// Default Config defines the default Config to be used to set default values.
var Default = Config{
	Logging: []Logging{
		{Output: "stdout", Level: "info"},
	},
}

// Load decodes the configuration from r and sets up the logging backends.
func (c *Config) Load(r io.Reader) error {
	md, err := toml.DecodeReader(r, c)
	if err != nil {
		return errors.Wrap(err, "config: decoding")
	}
	c.MetaData = md

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		log.Debugf("Keys left for the components: %v", undecoded)
	}

	if len(c.Logging) == 0 {
		fmt.Println("Warning: no logging backends configured. Add one to view log messages.")
	}

	return SetupLogging(c.Logging)
}

// SetupLogging installs the logging backends.
func SetupLogging(backends []Logging) error {
	var logBackends []logging.Backend
	for _, l := range backends {
		var err error

		var output io.Writer

		switch l.Output {
		case "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		default:
			output, err = os.OpenFile(os.ExpandEnv(l.Output), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0660)
		}

		if err != nil {
			return errors.Wrapf(err, "config: opening log output %s", l.Output)
		}

		backend := logging.NewLogBackend(output, "", 0)
		backendFormatter := logging.NewBackendFormatter(backend, format)
		backendLeveled := logging.AddModuleLevel(backendFormatter)

		level, err := logging.LogLevel(l.Level)
		if err != nil {
			return errors.Wrapf(err, "config: log level %s", l.Level)
		}

		backendLeveled.SetLevel(level, "")

		logBackends = append(logBackends, backendLeveled)
	}

	logging.SetBackend(logBackends...)

	return nil
}
