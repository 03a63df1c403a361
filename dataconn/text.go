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
	"golang.org/x/text/transform"
)

// toCRLF converts line feeds to CRLF, leaving existing CRLF untouched.
type toCRLF struct {
	cr bool
}

func (t *toCRLF) Reset() {
	t.cr = false
}

func (t *toCRLF) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]

		if c == '\n' && !t.cr {
			if nDst+2 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}

			dst[nDst], dst[nDst+1] = '\r', '\n'
			nDst += 2
		} else {
			if nDst+1 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}

			dst[nDst] = c
			nDst++
		}

		t.cr = c == '\r'
		nSrc++
	}

	return nDst, nSrc, nil
}

// fromCRLF converts CRLF to line feeds.
type fromCRLF struct {
	transform.NopResetter
}

func (fromCRLF) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]

		if c == '\r' {
			if nSrc+1 == len(src) && !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}

			if nSrc+1 < len(src) && src[nSrc+1] == '\n' {
				nSrc++
				continue
			}
		}

		if nDst+1 > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}

		dst[nDst] = c
		nDst++
		nSrc++
	}

	return nDst, nSrc, nil
}
