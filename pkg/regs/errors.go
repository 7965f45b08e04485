/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package regs

import (
	"errors"
	"fmt"
)

// ErrNotOpen is returned when a register block is accessed before Open or after Close
var ErrNotOpen = errors.New("register window is not mapped")

// ErrMap returned when the hardware window can not be mapped into process memory
type ErrMap struct {
	Path string
	Base int64
	Err  error
}

func (e ErrMap) Error() string {
	return fmt.Sprintf("Error while mapping %s at 0x%08x: %s", e.Path, e.Base, e.Err)
}

func (e ErrMap) Unwrap() error {
	return e.Err
}

// ErrOutOfWindow returned for offsets beyond the window or not aligned to a word
type ErrOutOfWindow struct {
	Offset uint32
	Size   uint32
}

func (e ErrOutOfWindow) Error() string {
	if e.Offset%WordSize != 0 {
		return fmt.Sprintf("Offset 0x%x is not aligned to %d bytes", e.Offset, WordSize)
	}
	return fmt.Sprintf("Offset 0x%x is out of window (size 0x%x)", e.Offset, e.Size)
}
