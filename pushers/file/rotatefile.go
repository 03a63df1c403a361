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
package file

import (
	"bytes"
	"fmt"
	"os"
	"time"
)

func openRotateFile(name string, mode os.FileMode, maxSize int64) (*rotateFile, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	rf := &rotateFile{
		f:       f,
		path:    name,
		pos:     fi.Size(),
		mode:    mode,
		maxSize: maxSize,
	}

	if rf.pos < maxSize {
		return rf, nil
	}

	return rf, rf.rotate()
}

// rotateFile is a file renamed and reopened when it would grow past
// maxSize. Lines are never split over two files.
type rotateFile struct {
	f *os.File

	mode    os.FileMode
	path    string
	pos     int64
	maxSize int64
}

func (f *rotateFile) rotate() error {
	f.f.Sync()
	f.f.Close()

	suffix := time.Now().Format("20060102150405.000000000")
	if err := os.Rename(f.path, fmt.Sprintf("%s.%s", f.path, suffix)); err != nil {
		return err
	}

	return f.reopen()
}

func (f *rotateFile) reopen() error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, f.mode)
	if err != nil {
		return err
	}

	f.f = file
	f.pos = 0
	return nil
}

// Write writes complete lines of p.
func (f *rotateFile) Write(p []byte) (int, error) {
	written := 0

	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			i = len(p) - 1
		}

		line := p[:i+1]

		if f.pos > 0 && f.pos+int64(len(line)) > f.maxSize {
			if err := f.rotate(); err != nil {
				return written, err
			}
		}

		n, err := f.f.Write(line)
		f.pos += int64(n)
		written += n

		if err != nil {
			return written, err
		}

		p = p[i+1:]
	}

	return written, nil
}

func (f *rotateFile) Close() error {
	if err := f.f.Sync(); err != nil {
		f.f.Close()
		return err
	}

	return f.f.Close()
}
