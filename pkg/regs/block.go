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
	"sync"

	"jinr.ru/greenlab/go-counter/pkg/log"
)

// Field describes a bit field inside a register word.
// Mask is the unshifted field mask, e.g. 0xF for a 4 bit field at Shift 8.
type Field struct {
	Offset uint32
	Mask   uint32
	Shift  uint
}

// Block owns the register window of one peripheral.
// At most one mapping is live between Open and Close.
type Block struct {
	mu     sync.RWMutex
	name   string
	opener Opener
	win    Window
}

// NewBlock ...
func NewBlock(name string, opener Opener) *Block {
	return &Block{
		name:   name,
		opener: opener,
	}
}

// Open maps the window. Opening an already open block does nothing.
func (b *Block) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.win != nil {
		return nil
	}
	win, err := b.opener()
	if err != nil {
		return err
	}
	log.Debug("Register window %s mapped: size 0x%x", b.name, win.Size())
	b.win = win
	return nil
}

// Close unmaps the window. It is safe to call Close more than once.
func (b *Block) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.win == nil {
		return nil
	}
	err := b.win.Close()
	b.win = nil
	log.Debug("Register window %s unmapped", b.name)
	return err
}

// IsOpen ...
func (b *Block) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.win != nil
}

// ReadWord reads the whole word at offset without masking
func (b *Block) ReadWord(offset uint32) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.win == nil {
		return 0, ErrNotOpen
	}
	return b.win.ReadWord(offset)
}

// WriteWord writes the whole word at offset without masking
func (b *Block) WriteWord(offset uint32, value uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.win == nil {
		return ErrNotOpen
	}
	return b.win.WriteWord(offset, value)
}

// ReadField returns (word >> shift) & mask
func (b *Block) ReadField(offset, mask uint32, shift uint) (uint32, error) {
	word, err := b.ReadWord(offset)
	if err != nil {
		return 0, err
	}
	return (word >> shift) & mask, nil
}

// WriteField replaces the field bits of the word at offset and keeps the rest.
// Bits of value outside mask are dropped. The read-modify-write is atomic
// with respect to other writes through the block.
func (b *Block) WriteField(offset, value, mask uint32, shift uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.win == nil {
		return ErrNotOpen
	}
	word, err := b.win.ReadWord(offset)
	if err != nil {
		return err
	}
	word = (word &^ (mask << shift)) | ((value & mask) << shift)
	return b.win.WriteWord(offset, word)
}

// Get ...
func (b *Block) Get(f Field) (uint32, error) {
	return b.ReadField(f.Offset, f.Mask, f.Shift)
}

// Set ...
func (b *Block) Set(f Field, value uint32) error {
	return b.WriteField(f.Offset, value, f.Mask, f.Shift)
}

// GetBool reads a single bit field
func (b *Block) GetBool(f Field) (bool, error) {
	v, err := b.Get(f)
	return v != 0, err
}

// SetBool writes a single bit field
func (b *Block) SetBool(f Field, enabled bool) error {
	var v uint32
	if enabled {
		v = 1
	}
	return b.Set(f, v)
}
