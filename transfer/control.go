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
// Package transfer moves file content between backend files and data
// connections.
package transfer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/honeytrap/ftpd/backend"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("ftpd/transfer")

var (
	// ErrNoConnection is returned when there is no usable data connection.
	ErrNoConnection = errors.New("transfer: no data connection")

	// ErrNotReady is returned when the data connection did not become ready
	// in time.
	ErrNotReady = errors.New("transfer: data connection not ready")

	// ErrTransferAborted is returned when a transfer failed or was aborted.
	ErrTransferAborted = errors.New("transfer: transfer aborted")

	// ErrBusy is returned when a transfer is already executing.
	ErrBusy = errors.New("transfer: previous transfer command is not finished yet")
)

// DataChannel is an open data connection.
type DataChannel interface {
	// WriteBlock starts writing b and returns the channel its result is
	// delivered on.
	WriteBlock(b *backend.Block) <-chan error

	// ReadBlock returns the next block received. The last block has EOF set.
	ReadBlock() (*backend.Block, error)

	Close() error
}

// Status is the outcome of a transfer.
type Status int32

const (
	Pending Status = iota
	Completed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "pending"
	}
}

// Control synchronizes the command running a transfer, the data connection
// and the transfer loop of one session.
type Control struct {
	timeout time.Duration

	m       sync.Mutex
	ready   chan struct{}
	channel DataChannel
	end     chan struct{}
	status  Status

	aborted   int32
	executing int32
}

// NewControl returns a control waiting at most timeout for the data
// connection.
func NewControl(timeout time.Duration) *Control {
	return &Control{
		timeout: timeout,
		ready:   make(chan struct{}),
		end:     make(chan struct{}),
	}
}

// Begin starts a new transfer. It fails with ErrBusy while another
// transfer executes.
func (c *Control) Begin() error {
	if !atomic.CompareAndSwapInt32(&c.executing, 0, 1) {
		return ErrBusy
	}

	c.m.Lock()
	defer c.m.Unlock()

	c.end = make(chan struct{})
	c.status = Pending
	atomic.StoreInt32(&c.aborted, 0)
	return nil
}

// IsExecuting returns true between Begin and Finish.
func (c *Control) IsExecuting() bool {
	return atomic.LoadInt32(&c.executing) == 1
}

// SetDataChannel publishes the opened data connection and wakes up the
// transfer loop waiting for it.
func (c *Control) SetDataChannel(ch DataChannel) {
	c.m.Lock()
	defer c.m.Unlock()

	c.channel = ch

	select {
	case <-c.ready:
	default:
		close(c.ready)
	}
}

// WaitForDataNetworkHandlerReady blocks until the data connection is set,
// at most the configured timeout.
func (c *Control) WaitForDataNetworkHandlerReady() error {
	c.m.Lock()
	ready := c.ready
	c.m.Unlock()

	select {
	case <-ready:
		return nil
	case <-time.After(c.timeout):
		return ErrNotReady
	}
}

// DataChannel returns the current data connection.
func (c *Control) DataChannel() (DataChannel, error) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.channel == nil {
		return nil, ErrNoConnection
	}

	return c.channel, nil
}

func (c *Control) finish(s Status) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.status != Pending {
		return
	}

	c.status = s
	close(c.end)
}

// SetPreEndOfTransfer signals that all data has been handed to the data
// connection.
func (c *Control) SetPreEndOfTransfer() {
	log.Debug("Transfer completed")
	c.finish(Completed)
}

// SetTransferAbortedFromInternal signals a failed transfer.
func (c *Control) SetTransferAbortedFromInternal() {
	log.Debug("Set transfer aborted internal")
	atomic.StoreInt32(&c.aborted, 1)
	c.finish(Aborted)
}

// Aborter is implemented by data channels able to interrupt pending I/O.
type Aborter interface {
	Abort()
}

// Abort asks the transfer loop to stop at the next block boundary and
// interrupts the data connection, if it supports it.
func (c *Control) Abort() {
	atomic.StoreInt32(&c.aborted, 1)

	c.m.Lock()
	ch := c.channel
	c.m.Unlock()

	if a, ok := ch.(Aborter); ok {
		a.Abort()
	}
}

func (c *Control) IsAborted() bool {
	return atomic.LoadInt32(&c.aborted) == 1
}

// WaitForEndOfTransfer blocks until the transfer completed or aborted.
func (c *Control) WaitForEndOfTransfer() Status {
	c.m.Lock()
	end := c.end
	c.m.Unlock()

	<-end

	c.m.Lock()
	defer c.m.Unlock()
	return c.status
}

// Finish ends the executing transfer and releases the data connection.
func (c *Control) Finish() {
	c.finish(Aborted)

	c.m.Lock()
	ch := c.channel
	c.channel = nil
	c.ready = make(chan struct{})
	c.m.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			log.Debugf("Error closing data connection: %s", err.Error())
		}
	}

	atomic.StoreInt32(&c.executing, 0)
}
