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
// Package server serves FTP control connections.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/honeytrap/ftpd/auth"
	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/backend/fsbackend"
	"github.com/honeytrap/ftpd/dataconn"
	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/pushers"
	"github.com/honeytrap/ftpd/secure"
	"github.com/honeytrap/ftpd/server/profiler"
	"github.com/honeytrap/ftpd/session"
	"github.com/honeytrap/ftpd/storage"
	"github.com/mattn/go-isatty"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var log = logging.MustGetLogger("ftpd/server")

const (
	defaultListen = ":2121"
	defaultName   = "ftpd"
	defaultBanner = "Service ready for new user."
	defaultRoot   = "."
)

// Server accepts control connections.
type Server struct {
	Options

	fs    backend.Filesystem
	authn backend.Authenticator

	bus      *pushers.Bus
	profiler profiler.Profiler

	data      *dataconn.Config
	tlsConfig *tls.Config

	dataDir string
	store   *storage.DB

	conns sync.WaitGroup
}

// New returns a server configured with options.
func New(options ...OptionFn) (*Server, error) {
	s := &Server{
		Options: Options{
			Listen: defaultListen,
			Name:   defaultName,
			Banner: defaultBanner,
			Root:   defaultRoot,
		},
		bus:      pushers.NewBus(),
		profiler: profiler.Dummy(),
		dataDir:  ".",
	}

	for _, fn := range options {
		if err := fn(s); err != nil {
			return nil, err
		}
	}

	if err := s.prepare(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) prepare() error {
	if s.fs == nil {
		fs, err := fsbackend.New(s.Root)
		if err != nil {
			return err
		}

		s.fs = fs
	}

	if s.authn == nil {
		s.authn = auth.New(
			auth.WithUsers(s.Users...),
			auth.WithAnonymous(s.Anonymous),
		)
	}

	ports, err := dataconn.ParsePortRange(s.PassivePorts)
	if err != nil {
		return err
	}

	s.data = &dataconn.Config{
		Ports:     ports,
		Timeout:   s.DataTimeout.Duration(),
		RateLimit: s.RateLimit.Int(),
	}

	if s.data.Timeout <= 0 {
		s.data.Timeout = dataconn.DefaultTimeout
	}

	if s.PublicIP != "" {
		ip := net.ParseIP(s.PublicIP)
		if ip == nil {
			return errors.Errorf("server: invalid public ip %s", s.PublicIP)
		}

		s.data.PublicIP = ip
	}

	if !s.ExplicitTLS {
		return nil
	}

	var cert *tls.Certificate

	if s.Certificate != "" {
		cert, err = secure.LoadCertificate(s.Certificate, s.Key)
	} else {
		if s.store, err = storage.Open(s.dataDir); err != nil {
			return err
		}

		cert, err = secure.Certificate(s.store.Namespace("ftpd.secure"), s.Name)
	}

	if err != nil {
		return err
	}

	s.tlsConfig = secure.Config(cert)
	s.data.TLS = s.tlsConfig
	return nil
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.Listen)
	if err != nil {
		return errors.Wrapf(err, "server: listening on %s", s.Listen)
	}

	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done. Open sessions are told
// the service is shutting down and Serve returns once they are closed.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	if IsTerminal(os.Stdout) {
		fmt.Println(color.YellowString("ftpd listening on %s", l.Addr()))
	} else {
		log.Infof("ftpd listening on %s", l.Addr())
	}

	s.profiler.Start()
	defer s.profiler.Stop()

	s.bus.Send(event.New(
		event.Category(event.CategoryFTP),
		event.ServiceStarted,
		event.Custom("ftp.listen", l.Addr().String()),
	))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return l.Close()
	})

	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if gctx.Err() != nil {
				return nil
			} else if ne, ok := err.(net.Error); ok && ne.Temporary() {
				log.Warningf("Temporary error accepting connection: %s", err.Error())
				time.Sleep(50 * time.Millisecond)
				continue
			} else if err != nil {
				return errors.Wrap(err, "server: accepting connection")
			}

			s.conns.Add(1)
			go s.handle(gctx, conn)

			// in case of goroutine starvation
			// with many connection and single procs
			runtime.Gosched()
		}
	})

	err := g.Wait()

	s.conns.Wait()

	s.bus.Send(event.New(
		event.Category(event.CategoryFTP),
		event.ServiceEnded,
	))

	if s.store != nil {
		if cerr := s.store.Close(); cerr != nil {
			log.Errorf("Error closing storage: %s", cerr.Error())
		}
	}

	return err
}

func (s *Server) handle(ctx context.Context, rwc net.Conn) {
	defer s.conns.Done()

	defer func() {
		if err := recover(); err != nil {
			trace := make([]byte, 1024)
			count := runtime.Stack(trace, true)
			log.Errorf("Error: %s", err)
			log.Errorf("Stack of %d bytes: %s\n", count, string(trace))
			rwc.Close()
		}
	}()

	log.Debugf("Accepted connection for %s => %s", rwc.RemoteAddr(), rwc.LocalAddr())
	defer log.Debugf("Disconnected connection for %s => %s", rwc.RemoteAddr(), rwc.LocalAddr())

	c, err := s.newConn(rwc)
	if err != nil {
		log.Errorf("Error setting up session: %s", err.Error())
		rwc.Close()
		return
	}

	c.serve(ctx)
}

func (s *Server) newSession() (*session.Session, error) {
	dir, err := s.fs.NewDir()
	if err != nil {
		return nil, err
	}

	return session.New(
		session.WithAuth(s.authn.NewAuth()),
		session.WithDir(dir),
		session.WithBlockSize(s.BlockSize.Int()),
	), nil
}

// IsTerminal returns true when f is a terminal.
func IsTerminal(f *os.File) bool {
	if isatty.IsTerminal(f.Fd()) {
		return true
	} else if isatty.IsCygwinTerminal(f.Fd()) {
		return true
	}

	return false
}
