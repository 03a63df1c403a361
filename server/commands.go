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
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/honeytrap/ftpd/address"
	"github.com/honeytrap/ftpd/argument"
	"github.com/honeytrap/ftpd/auth"
	"github.com/honeytrap/ftpd/command"
	"github.com/honeytrap/ftpd/event"
	"github.com/honeytrap/ftpd/reply"
	"github.com/honeytrap/ftpd/transfer"
	"github.com/pkg/errors"
)

func init() {
	handlers = map[command.Code]handlerFunc{
		command.USER: cmdUser,
		command.PASS: cmdPass,
		command.ACCT: cmdAcct,
		command.REIN: cmdRein,
		command.QUIT: cmdQuit,

		command.NOOP: cmdNoop,
		command.SYST: cmdSyst,
		command.FEAT: cmdFeat,
		command.OPTS: cmdOpts,
		command.HELP: cmdHelp,
		command.STAT: cmdStat,
		command.ALLO: cmdAllo,
		command.ABOR: cmdAbor,

		command.AUTH: cmdAuth,
		command.PBSZ: cmdPbsz,
		command.PROT: cmdProt,
		command.CCC:  cmdCcc,

		command.PWD:  cmdPwd,
		command.XPWD: cmdPwd,
		command.CWD:  cmdCwd,
		command.XCWD: cmdCwd,
		command.CDUP: cmdCdup,
		command.XCUP: cmdCdup,
		command.MKD:  cmdMkd,
		command.XMKD: cmdMkd,
		command.RMD:  cmdRmd,
		command.XRMD: cmdRmd,
		command.DELE: cmdDele,
		command.RNFR: cmdRnfr,
		command.RNTO: cmdRnto,
		command.SIZE: cmdSize,
		command.MDTM: cmdMdtm,

		command.TYPE: cmdType,
		command.MODE: cmdMode,
		command.STRU: cmdStru,

		command.PORT: cmdPort,
		command.EPRT: cmdEprt,
		command.PASV: cmdPasv,
		command.EPSV: cmdEpsv,

		command.REST: cmdRest,
		command.RETR: cmdRetr,
		command.STOR: cmdStor,
		command.APPE: cmdAppe,
		command.STOU: cmdStou,
	}
}

func cmdUser(c *conn, cmd *command.Command) error {
	s := c.session

	if !cmd.HasArg() {
		s.ResetToConnection()
		return command.Reply501("Login with USER <name>.")
	}

	res, err := s.Auth().User(cmd.Arg())
	if err != nil {
		return c.loginFailed(cmd, err)
	}

	if res.Identified {
		return c.loggedIn()
	}

	s.SetExtraNextCommand(res.Next)
	return c.answer(res.Reply, "")
}

func cmdPass(c *conn, cmd *command.Command) error {
	s := c.session

	res, err := s.Auth().Password(cmd.Arg())
	if err != nil {
		return c.loginFailed(cmd, err)
	}

	if res.Identified {
		return c.loggedIn()
	}

	s.SetExtraNextCommand(res.Next)
	return c.answer(res.Reply, "")
}

func cmdAcct(c *conn, cmd *command.Command) error {
	s := c.session

	if !cmd.HasArg() {
		return command.Reply501("Send ACCT <account>.")
	}

	res, err := s.Auth().Account(cmd.Arg())
	if err != nil {
		return c.loginFailed(cmd, err)
	}

	if res.Identified {
		return c.loggedIn()
	}

	s.SetExtraNextCommand(res.Next)
	return c.answer(res.Reply, "")
}

func (c *conn) loginFailed(cmd *command.Command, err error) error {
	s := c.session

	c.send(
		event.LoginFailed,
		event.User(s.Auth().UserName()),
		event.Error(err),
	)

	s.Auth().Clear()
	s.ResetToConnection()

	if err == auth.ErrNoUser {
		return command.Wrap(reply.StatusBadSequence, err, "Login with USER first.")
	}

	return command.Wrap(reply.StatusNotLoggedIn, err, "Login incorrect.")
}

func (c *conn) loggedIn() error {
	c.send(
		event.LoginSucceeded,
		event.User(c.session.Auth().UserName()),
	)

	return c.answer(reply.StatusLoggedIn, "")
}

func cmdRein(c *conn, cmd *command.Command) error {
	s := c.session

	dir, err := c.server.fs.NewDir()
	if err != nil {
		return command.Wrap(reply.StatusNotAvailable, err, "")
	}

	if err := c.data.Close(); err != nil {
		log.Debugf("%s: Error closing data socket: %s", s.ID(), err.Error())
	}

	s.Rein()
	s.SetDir(dir)
	c.renameFrom = ""

	return c.answer(reply.StatusReady, "")
}

func cmdQuit(c *conn, cmd *command.Command) error {
	// a running transfer is answered before the connection closes
	c.transfers.Wait()

	c.closing = true
	return c.answer(reply.StatusClosing, "Goodbye.")
}

func cmdNoop(c *conn, cmd *command.Command) error {
	return c.answer(reply.StatusCommandOK, "")
}

func cmdSyst(c *conn, cmd *command.Command) error {
	return c.answer(reply.StatusName, "")
}

func cmdFeat(c *conn, cmd *command.Command) error {
	features := []string{
		"Extensions supported:",
		" EPRT",
		" EPSV",
		" MDTM",
		" SIZE",
		" REST STREAM",
		" MODE Z",
		" UTF8",
	}

	if c.server.tlsConfig != nil {
		features = append(features, " AUTH TLS", " PBSZ", " PROT")
	}

	features = append(features, "End")
	return c.answer(reply.StatusSystem, strings.Join(features, "\n"))
}

func cmdOpts(c *conn, cmd *command.Command) error {
	fields := strings.Fields(strings.ToUpper(cmd.Arg()))
	if len(fields) == 0 {
		return command.Reply501("")
	}

	switch fields[0] {
	case "UTF8", "UTF-8":
		return c.answer(reply.StatusCommandOK, "UTF8 mode enabled.")
	case "MODE":
		return c.answer(reply.StatusCommandOK, "MODE options accepted.")
	}

	return command.Reply501(fmt.Sprintf("Option %s not understood.", fields[0]))
}

func cmdHelp(c *conn, cmd *command.Command) error {
	var lines []string

	lines = append(lines, "The following commands are recognized:")

	var row []string
	for code := command.USER; code < command.Unknown; code++ {
		if _, ok := handlers[code]; !ok {
			continue
		}

		row = append(row, code.String())
		if len(row) == 8 {
			lines = append(lines, " "+strings.Join(row, " "))
			row = nil
		}
	}

	if len(row) > 0 {
		lines = append(lines, " "+strings.Join(row, " "))
	}

	lines = append(lines, reply.StatusHelp.Message())
	return c.answer(reply.StatusHelp, strings.Join(lines, "\n"))
}

func cmdStat(c *conn, cmd *command.Command) error {
	s := c.session

	if cmd.HasArg() {
		if !s.IsIdentified() {
			return command.Reply530("")
		}

		fi, err := s.Dir().Stat(cmd.Arg())
		if err != nil {
			return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: No such file or directory.", cmd.Arg()))
		}

		return c.answer(reply.StatusFile, fmt.Sprintf("Status of %s:\n %s %d %s\nEnd of status.",
			cmd.Arg(), fi.Mode(), fi.Size(), fi.ModTime().UTC().Format("Jan _2 15:04")))
	}

	p := s.Params()

	lines := []string{
		fmt.Sprintf("%s FTP server status:", c.server.Name),
		fmt.Sprintf(" Connected to %s", c.rwc.RemoteAddr()),
	}

	if s.IsIdentified() {
		lines = append(lines, fmt.Sprintf(" Logged in as %s", s.Auth().UserName()))
	} else {
		lines = append(lines, " Not logged in")
	}

	lines = append(lines,
		fmt.Sprintf(" TYPE: %s, FORM: %s; STRUcture: %s; transfer MODE: %s", p.Type, p.SubType, p.Structure, p.Mode),
	)

	if c.ctrl.IsExecuting() {
		lines = append(lines, " Transfer in progress")
	} else {
		lines = append(lines, " No data connection")
	}

	lines = append(lines, "End of status")
	return c.answer(reply.StatusSystem, strings.Join(lines, "\n"))
}

func cmdAllo(c *conn, cmd *command.Command) error {
	return c.answer(reply.StatusCommandNotImplemented, "ALLO command ignored.")
}

func cmdAbor(c *conn, cmd *command.Command) error {
	if !c.ctrl.IsExecuting() {
		return c.answer(reply.StatusClosingDataConnection, "No transfer to abort.")
	}

	c.ctrl.Abort()

	if err := c.data.Close(); err != nil {
		log.Debugf("%s: Error closing data socket: %s", c.session.ID(), err.Error())
	}

	// the transfer answers 426 first
	c.transfers.Wait()

	return c.answer(reply.StatusClosingDataConnection, "ABOR command successful.")
}

func cmdAuth(c *conn, cmd *command.Command) error {
	if c.server.tlsConfig == nil {
		return command.Reply534("TLS is not configured.")
	}

	if c.session.IsSsl() {
		return command.Reply503("Already using TLS.")
	}

	switch strings.ToUpper(cmd.Arg()) {
	case "TLS", "TLS-C", "SSL", "TLS-P":
	default:
		return command.Reply504(fmt.Sprintf("AUTH %s not supported.", cmd.Arg()))
	}

	if err := c.answer(reply.StatusSecurityExchangeOK, "AUTH TLS successful."); err != nil {
		return err
	}

	if err := c.upgradeToTLS(); err != nil {
		log.Errorf("%s: TLS handshake failed: %s", c.session.ID(), err.Error())
		c.closing = true
	}

	return nil
}

func cmdPbsz(c *conn, cmd *command.Command) error {
	if !c.session.IsSsl() {
		return command.Reply503("PBSZ requires AUTH first.")
	}

	return c.answer(reply.StatusCommandOK, "PBSZ=0")
}

func cmdProt(c *conn, cmd *command.Command) error {
	s := c.session

	if !s.IsSsl() {
		return command.Reply503("PROT requires AUTH first.")
	}

	switch strings.ToUpper(cmd.Arg()) {
	case "P":
		s.SetDataSsl(true)
	case "C":
		s.SetDataSsl(false)
	case "S", "E":
		return command.NewError(reply.StatusProtNotSupported, "")
	default:
		return command.Reply504("")
	}

	return c.answer(reply.StatusCommandOK, fmt.Sprintf("Protection level set to %s.", strings.ToUpper(cmd.Arg())))
}

func cmdCcc(c *conn, cmd *command.Command) error {
	return command.Reply534("")
}

func cmdPwd(c *conn, cmd *command.Command) error {
	return c.answer(reply.StatusPathCreated, fmt.Sprintf("%q is the current directory.", c.session.Dir().Pwd()))
}

func cmdCwd(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	if err := c.session.Dir().ChangeDir(cmd.Arg()); err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: No such directory.", cmd.Arg()))
	}

	return c.answer(reply.StatusRequestedFileActionOK, fmt.Sprintf("Directory changed to %s.", c.session.Dir().Pwd()))
}

func cmdCdup(c *conn, cmd *command.Command) error {
	if err := c.session.Dir().ChangeDir(".."); err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, "")
	}

	return c.answer(reply.StatusRequestedFileActionOK, fmt.Sprintf("Directory changed to %s.", c.session.Dir().Pwd()))
}

func cmdMkd(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	p, err := c.session.Dir().MakeDir(cmd.Arg())
	if err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: Could not create directory.", cmd.Arg()))
	}

	return c.answer(reply.StatusPathCreated, fmt.Sprintf("%q created.", p))
}

func cmdRmd(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	if err := c.session.Dir().DeleteDir(cmd.Arg()); err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: Could not remove directory.", cmd.Arg()))
	}

	return c.answer(reply.StatusRequestedFileActionOK, "")
}

func cmdDele(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	if err := c.session.Dir().DeleteFile(cmd.Arg()); err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: Could not delete file.", cmd.Arg()))
	}

	return c.answer(reply.StatusRequestedFileActionOK, "")
}

func cmdRnfr(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	if _, err := c.session.Dir().Stat(cmd.Arg()); err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: No such file or directory.", cmd.Arg()))
	}

	c.renameFrom = cmd.Arg()
	return c.answer(reply.StatusRequestFilePending, "Ready for destination name.")
}

func cmdRnto(c *conn, cmd *command.Command) error {
	from := c.renameFrom
	c.renameFrom = ""

	if !cmd.HasArg() {
		return command.Reply501("")
	}

	if from == "" {
		return command.Reply503("RNFR required first.")
	}

	if err := c.session.Dir().Rename(from, cmd.Arg()); err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("Could not rename %s.", from))
	}

	return c.answer(reply.StatusRequestedFileActionOK, "Rename successful.")
}

func cmdSize(c *conn, cmd *command.Command) error {
	s := c.session

	if !cmd.HasArg() {
		return command.Reply501("")
	}

	fi, err := s.Dir().Stat(cmd.Arg())
	if err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: No such file.", cmd.Arg()))
	} else if fi.IsDir() {
		return command.Reply550(fmt.Sprintf("%s: Not a regular file.", cmd.Arg()))
	}

	n := transfer.Length(fi.Size(), s.BlockSize(), s.Params())
	return c.answer(reply.StatusFile, strconv.FormatInt(n, 10))
}

func cmdMdtm(c *conn, cmd *command.Command) error {
	if !cmd.HasArg() {
		return command.Reply501("")
	}

	fi, err := c.session.Dir().Stat(cmd.Arg())
	if err != nil {
		return command.Wrap(reply.StatusFileUnavailable, err, fmt.Sprintf("%s: No such file.", cmd.Arg()))
	}

	return c.answer(reply.StatusFile, fi.ModTime().UTC().Format("20060102150405"))
}

// argumentError maps a bad transfer parameter to 504 and a malformed
// argument to 501.
func argumentError(err error) error {
	if _, ok := err.(*argument.InvalidError); ok {
		return command.Wrap(reply.StatusNotImplementedParameter, err, "")
	}

	return command.Wrap(reply.StatusBadArguments, err, "")
}

func singleChar(cmd *command.Command) (byte, error) {
	if len(cmd.Arg()) != 1 {
		return 0, command.Reply501("")
	}

	return cmd.Arg()[0], nil
}

func cmdType(c *conn, cmd *command.Command) error {
	t, st, err := argument.ParseTypeArgument(cmd.Arg())
	if err != nil {
		return argumentError(err)
	}

	c.session.SetType(t, st)
	return c.answer(reply.StatusCommandOK, fmt.Sprintf("Type set to %c.", t.Char()))
}

func cmdMode(c *conn, cmd *command.Command) error {
	ch, err := singleChar(cmd)
	if err != nil {
		return err
	}

	m, err := argument.ParseMode(ch)
	if err != nil {
		return argumentError(err)
	}

	if m == argument.COMPRESSED {
		return command.Reply504("MODE C not supported.")
	}

	c.session.SetMode(m)
	return c.answer(reply.StatusCommandOK, fmt.Sprintf("Mode set to %c.", m.Char()))
}

func cmdStru(c *conn, cmd *command.Command) error {
	ch, err := singleChar(cmd)
	if err != nil {
		return err
	}

	st, err := argument.ParseStructure(ch)
	if err != nil {
		return argumentError(err)
	}

	if st != argument.FILE {
		return command.Reply504(fmt.Sprintf("STRU %c not supported.", st.Char()))
	}

	c.session.SetStructure(st)
	return c.answer(reply.StatusCommandOK, fmt.Sprintf("Structure set to %c.", st.Char()))
}

func cmdPort(c *conn, cmd *command.Command) error {
	e, err := address.ParseLegacy(cmd.Arg())
	if err != nil {
		return command.Wrap(reply.StatusBadArguments, err, "")
	}

	c.data.SetActive(e)
	return c.answer(reply.StatusCommandOK, "PORT command successful.")
}

func cmdEprt(c *conn, cmd *command.Command) error {
	e, err := address.ParseExtended(cmd.Arg())
	if err == address.ErrProtocol {
		return command.Wrap(reply.StatusExtendedPortFailure, err, "")
	} else if err != nil {
		return command.Wrap(reply.StatusBadArguments, err, "")
	}

	c.data.SetActive(e)
	return c.answer(reply.StatusCommandOK, "EPRT command successful.")
}

// localIP returns the address the client reached the server on.
func (c *conn) localIP() net.IP {
	if ta, ok := c.rwc.LocalAddr().(*net.TCPAddr); ok {
		return ta.IP
	}

	return net.IPv4zero
}

func cmdPasv(c *conn, cmd *command.Command) error {
	e, err := c.data.SetPassive(c.localIP())
	if err != nil {
		return command.Wrap(reply.StatusCanNotOpenDataConn, err, "")
	}

	s, err := address.EncodeLegacy(e)
	if err != nil {
		c.data.Close()
		return command.Wrap(reply.StatusCanNotOpenDataConn, err, "Use EPSV on IPv6.")
	}

	return c.answer(reply.StatusPassiveMode, fmt.Sprintf("Entering Passive Mode (%s).", s))
}

func cmdEpsv(c *conn, cmd *command.Command) error {
	switch strings.ToUpper(cmd.Arg()) {
	case "":
	case "ALL":
		return c.answer(reply.StatusCommandOK, "EPSV ALL command successful.")
	case "1", "2":
	default:
		return command.Reply522("")
	}

	e, err := c.data.SetPassive(c.localIP())
	if err != nil {
		return command.Wrap(reply.StatusCanNotOpenDataConn, err, "")
	}

	return c.answer(reply.StatusExtendedPassiveMode, fmt.Sprintf("Entering Extended Passive Mode (|||%d|).", e.Port))
}

func cmdRest(c *conn, cmd *command.Command) error {
	pos, err := strconv.ParseInt(cmd.Arg(), 10, 64)
	if err != nil || pos < 0 {
		return command.Wrap(reply.StatusBadArguments, errors.Errorf("invalid restart position %q", cmd.Arg()), "")
	}

	c.session.SetRestart(pos)
	return c.answer(reply.StatusRequestFilePending, fmt.Sprintf("Restarting at %d. Send STORE or RETRIEVE.", pos))
}
