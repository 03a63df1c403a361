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
package secure

import (
	"bytes"
	"testing"

	"github.com/honeytrap/ftpd/storage"
)

type memStorage map[string][]byte

func (m memStorage) Get(key string) ([]byte, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return nil, storage.ErrNotFound
}

func (m memStorage) Set(key string, data []byte) error {
	m[key] = data
	return nil
}

func (m memStorage) Delete(key string) error {
	delete(m, key)
	return nil
}

func TestCertificatePersisted(t *testing.T) {
	s := memStorage{}

	first, err := Certificate(s, "ftp.example.org")
	if err != nil {
		t.Fatal(err)
	}

	if len(s[keyName]) == 0 || len(s[certName]) == 0 {
		t.Fatal("key pair should be persisted")
	}

	second, err := Certificate(s, "ftp.example.org")
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.Certificate[0], second.Certificate[0]) {
		t.Error("the persisted certificate should be reused")
	}

	if cfg := Config(second); cfg == nil || len(cfg.Certificates) != 1 {
		t.Error("unexpected TLS config")
	}

	if Config(nil) != nil {
		t.Error("no certificate should give no TLS config")
	}
}
