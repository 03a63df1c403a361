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
// Package cmd contains the command line interface of ftpd.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/honeytrap/ftpd/config"
	"github.com/honeytrap/ftpd/pushers/bolt"
	"github.com/honeytrap/ftpd/server"
	logging "github.com/op/go-logging"
	cli "gopkg.in/urfave/cli.v1"

	// channels available to the configuration
	_ "github.com/honeytrap/ftpd/pushers/console"
	_ "github.com/honeytrap/ftpd/pushers/file"
)

// Version defines the version number for the cli.
var Version = "0.1"

var log = logging.MustGetLogger("ftpd/cmd")

var helpTemplate = `NAME:
{{.Name}} - {{.Usage}}

DESCRIPTION:
{{.Description}}

USAGE:
{{.Name}} {{if .Flags}}[flags] {{end}}command{{if .Flags}}{{end}} [arguments...]

COMMANDS:
{{range .Commands}}{{join .Names ", "}}{{ "\t" }}{{.Usage}}
{{end}}{{if .Flags}}
FLAGS:
{{range .Flags}}{{.}}
{{end}}{{end}}
VERSION:
` + Version +
	`{{ "\n"}}`

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Value: "config.toml",
		Usage: "Load configuration from `FILE`",
	},
	cli.StringFlag{
		Name:  "data, d",
		Value: "~/.ftpd",
		Usage: "Store data in `DIR`",
	},
	cli.StringFlag{
		Name:  "listen, l",
		Usage: "Listen on `ADDR` instead of the configured address",
	},
	cli.BoolFlag{Name: "cpu-profile", Usage: "Enable cpu profiler"},
	cli.BoolFlag{Name: "mem-profile", Usage: "Enable memory profiler"},
}

// Cmd defines a struct for defining a command.
type Cmd struct {
	*cli.App
}

// VersionAction defines the action called when seeking the Version detail.
func VersionAction(c *cli.Context) {
	fmt.Println(color.YellowString("ftpd %s: FTP server with block, compressed and TLS data transfers.", Version))
}

func loadConfig(name string) (*config.Config, error) {
	conf := config.Default

	f, err := os.Open(name)
	if os.IsNotExist(err) {
		fmt.Println(color.YellowString("Configuration file %s not found, using defaults.", name))
		return &conf, config.SetupLogging(conf.Logging)
	} else if err != nil {
		return nil, err
	}

	defer f.Close()

	if err := conf.Load(f); err != nil {
		return nil, err
	}

	return &conf, nil
}

func serve(c *cli.Context) error {
	conf, err := loadConfig(c.GlobalString("config"))
	if err != nil {
		return cli.NewExitError(color.RedString("Error opening config file: %s", err.Error()), 1)
	}

	dataDir, err := server.WithDataDir(c.GlobalString("data"))
	if err != nil {
		return cli.NewExitError(color.RedString("Error opening data dir: %s", err.Error()), 1)
	}

	options := []server.OptionFn{
		dataDir,
		server.WithConfig(conf),
	}

	if v := c.GlobalString("listen"); v != "" {
		options = append(options, server.WithOptions(func(o *server.Options) {
			o.Listen = v
		}))
	}

	if c.GlobalBool("cpu-profile") {
		options = append(options, server.WithCPUProfiler())
	}

	if c.GlobalBool("mem-profile") {
		options = append(options, server.WithMemoryProfiler())
	}

	srv, err := server.New(options...)
	if err != nil {
		return cli.NewExitError(color.RedString("Error starting server: %s", err.Error()), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		s := make(chan os.Signal, 1)
		signal.Notify(s, os.Interrupt)
		signal.Notify(s, syscall.SIGTERM)

		<-s

		log.Info("Stopping ftpd....")
		cancel()
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		return cli.NewExitError(color.RedString("%s", err.Error()), 1)
	}

	return nil
}

func history(c *cli.Context) error {
	h, err := bolt.Open(c.String("file"), c.String("bucket"))
	if err != nil {
		return cli.NewExitError(color.RedString("Error opening history: %s", err.Error()), 1)
	}

	defer h.Close()

	events, err := h.Get(uint64(c.Int("from")), c.Int("count"))
	if err != nil {
		return cli.NewExitError(color.RedString("%s", err.Error()), 1)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return cli.NewExitError(color.RedString("%s", err.Error()), 1)
		}
	}

	return nil
}

// New returns a new instance of the Cmd struct.
func New() *Cmd {
	app := cli.NewApp()
	app.Name = "ftpd"
	app.Author = ""
	app.Usage = "ftpd"
	app.Flags = globalFlags
	app.Description = `ftpd: The FTP server.`
	app.CustomAppHelpTemplate = helpTemplate
	app.Commands = []cli.Command{
		{
			Name:   "version",
			Action: VersionAction,
		},
		{
			Name:   "serve",
			Usage:  "Serve FTP sessions",
			Action: serve,
		},
		{
			Name:   "history",
			Usage:  "Print the events stored by the bolt channel",
			Action: history,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "file, f", Value: "ftpd-history.db", Usage: "Read events from `FILE`"},
				cli.StringFlag{Name: "bucket, b", Value: bolt.DefaultBucket, Usage: "Read events from `BUCKET`"},
				cli.IntFlag{Name: "from", Value: 0, Usage: "Start at sequence `N`"},
				cli.IntFlag{Name: "count, n", Value: -1, Usage: "Print at most `N` events"},
			},
		},
	}

	app.Before = func(c *cli.Context) error {
		return nil
	}

	app.Action = serve

	return &Cmd{
		App: app,
	}
}
