// Copyright 2026 RefGraph Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package iohelp

import (
	"io"
)

// WriteAll writes the entirety of the given byte slices to the writer,
// retrying on short writes.
func WriteAll(w io.Writer, bytes ...[]byte) error {
	for _, b := range bytes {
		for len(b) > 0 {
			n, err := w.Write(b)

			if err != nil {
				return err
			}

			b = b[n:]
		}
	}

	return nil
}
