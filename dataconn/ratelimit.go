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
package dataconn

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter of bytesPerSecond, nil when unlimited.
func NewLimiter(bytesPerSecond int) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)
}

type rateWriter struct {
	w       io.Writer
	limiter *rate.Limiter
}

func (rw *rateWriter) Write(p []byte) (int, error) {
	written := 0

	for len(p) > 0 {
		n := len(p)
		if burst := rw.limiter.Burst(); n > burst {
			n = burst
		}

		if err := rw.limiter.WaitN(context.Background(), n); err != nil {
			return written, err
		}

		m, err := rw.w.Write(p[:n])
		written += m

		if err != nil {
			return written, err
		}

		p = p[n:]
	}

	return written, nil
}

type rateReader struct {
	r       io.Reader
	limiter *rate.Limiter
}

func (rr *rateReader) Read(p []byte) (int, error) {
	if burst := rr.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := rr.r.Read(p)
	if n > 0 {
		if werr := rr.limiter.WaitN(context.Background(), n); werr != nil && err == nil {
			err = werr
		}
	}

	return n, err
}

func limitWriter(w io.Writer, l *rate.Limiter) io.Writer {
	if l == nil {
		return w
	}
	return &rateWriter{w: w, limiter: l}
}

func limitReader(r io.Reader, l *rate.Limiter) io.Reader {
	if l == nil {
		return r
	}
	return &rateReader{r: r, limiter: l}
}
