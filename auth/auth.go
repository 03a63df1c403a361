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
// Package auth authenticates sessions against a table of users.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/honeytrap/ftpd/backend"
	"github.com/honeytrap/ftpd/command"
	"github.com/honeytrap/ftpd/reply"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("ftpd/auth")

var (
	// ErrLoginFailed is returned for a bad user, password or account.
	ErrLoginFailed = errors.New("auth: login incorrect")

	// ErrNoUser is returned when PASS or ACCT arrive before USER.
	ErrNoUser = errors.New("auth: login with USER first")
)

// User is a user allowed to log in. When NeedAccount is set the login is
// only complete after ACCT with a matching Account.
type User struct {
	Name        string `toml:"user"`
	Password    string `toml:"password"`
	Account     string `toml:"account"`
	NeedAccount bool   `toml:"need-account"`
}

// Table is the set of known users.
type Table struct {
	users     map[string]User
	anonymous bool
}

var _ backend.Authenticator = (*Table)(nil)

// OptionFn configures a table.
type OptionFn func(*Table)

// WithUsers adds users to the table.
func WithUsers(users ...User) OptionFn {
	return func(t *Table) {
		for _, u := range users {
			t.users[u.Name] = u
		}
	}
}

// WithAnonymous allows the anonymous and ftp users with any password.
func WithAnonymous(b bool) OptionFn {
	return func(t *Table) {
		t.anonymous = b
	}
}

func New(options ...OptionFn) *Table {
	t := &Table{
		users: map[string]User{},
	}

	for _, fn := range options {
		fn(t)
	}

	return t
}

func (t *Table) NewAuth() backend.Auth {
	return &state{table: t}
}

type state struct {
	table *Table

	name    string
	account string

	user       *User
	passed     bool
	identified bool
}

func (s *state) isAnonymous() bool {
	n := strings.ToLower(s.name)
	return s.table.anonymous && (n == "anonymous" || n == "ftp")
}

func (s *state) User(name string) (backend.Result, error) {
	s.Clear()

	if name == "" {
		return backend.Result{}, ErrLoginFailed
	}

	s.name = name

	if u, ok := s.table.users[name]; ok {
		s.user = &u
	}

	// unknown users are asked for a password as well
	return backend.Result{Next: command.PASS, Reply: reply.StatusUserOK}, nil
}

func (s *state) Password(password string) (backend.Result, error) {
	if s.name == "" {
		return backend.Result{}, ErrNoUser
	}

	if s.isAnonymous() {
		s.passed, s.identified = true, true
		log.Debugf("Anonymous login (%s)", password)
		return backend.Result{Identified: true, Reply: reply.StatusLoggedIn}, nil
	}

	if s.user == nil || subtle.ConstantTimeCompare([]byte(s.user.Password), []byte(password)) != 1 {
		log.Debugf("Bad password for user %s", s.name)
		return backend.Result{}, ErrLoginFailed
	}

	s.passed = true

	if s.user.NeedAccount {
		return backend.Result{Next: command.ACCT, Reply: reply.StatusLoginNeedAccount}, nil
	}

	s.identified = true
	return backend.Result{Identified: true, Reply: reply.StatusLoggedIn}, nil
}

func (s *state) Account(account string) (backend.Result, error) {
	if s.name == "" {
		return backend.Result{}, ErrNoUser
	}

	if !s.passed {
		return backend.Result{Next: command.PASS, Reply: reply.StatusUserOK}, nil
	}

	if s.user != nil && s.user.Account != "" && s.user.Account != account {
		log.Debugf("Bad account for user %s", s.name)
		return backend.Result{}, ErrLoginFailed
	}

	s.account = account
	s.identified = true
	return backend.Result{Identified: true, Reply: reply.StatusLoggedIn}, nil
}

func (s *state) IsIdentified() bool {
	return s.identified
}

func (s *state) UserName() string {
	return s.name
}

func (s *state) AccountName() string {
	return s.account
}

func (s *state) Clear() {
	s.name, s.account = "", ""
	s.user = nil
	s.passed, s.identified = false, false
}
