// SPDX-License-Identifier: GPL-3.0-or-later

package rac

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeOutput turns raw tool output into a UTF-8 string. On Windows the 1C
// platform writes console output in CP866 (sometimes CP1251), so valid UTF-8
// is taken as is and everything else goes through the codepage fallback
// chain. The worst case degrades to lossy UTF-8 rather than failing.
func decodeOutput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	for _, cm := range []*charmap.Charmap{charmap.CodePage866, charmap.Windows1251} {
		if s, err := cm.NewDecoder().Bytes(raw); err == nil {
			return string(s)
		}
	}

	return string(bytes.ToValidUTF8(raw, []byte("�")))
}
