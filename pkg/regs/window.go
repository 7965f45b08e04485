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
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	WordSize = 4
)

// Window is a word addressable view of a hardware register space.
// Offsets are in bytes and must be word aligned.
type Window interface {
	ReadWord(offset uint32) (uint32, error)
	WriteWord(offset uint32, value uint32) error
	Size() uint32
	Close() error
}

// Opener creates the window when a Block is opened
type Opener func() (Window, error)

func checkOffset(offset, size uint32) error {
	if offset%WordSize != 0 || offset > size-WordSize || size < WordSize {
		return ErrOutOfWindow{Offset: offset, Size: size}
	}
	return nil
}

// words reinterprets an aligned byte slice as uint32 words so that every
// access is a single 32 bit load or store
func words(data []byte) []uint32 {
	if len(data) < WordSize {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/WordSize)
}

// Mapping is a Window over a memory mapped device file, usually /dev/mem
type Mapping struct {
	file *os.File
	data []byte
	mem  []uint32
}

var _ Window = &Mapping{}

// Map maps size bytes of path starting at base
func Map(path string, base int64, size int) (*Mapping, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, ErrMap{Path: path, Base: base, Err: err}
	}
	data, err := unix.Mmap(int(file.Fd()), base, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		return nil, ErrMap{Path: path, Base: base, Err: err}
	}
	return &Mapping{
		file: file,
		data: data,
		mem:  words(data),
	}, nil
}

// MapOpener returns an Opener mapping path at base
func MapOpener(path string, base int64, size int) Opener {
	return func() (Window, error) {
		return Map(path, base, size)
	}
}

func (m *Mapping) ReadWord(offset uint32) (uint32, error) {
	if err := checkOffset(offset, m.Size()); err != nil {
		return 0, err
	}
	return atomic.LoadUint32(&m.mem[offset/WordSize]), nil
}

func (m *Mapping) WriteWord(offset uint32, value uint32) error {
	if err := checkOffset(offset, m.Size()); err != nil {
		return err
	}
	atomic.StoreUint32(&m.mem[offset/WordSize], value)
	return nil
}

func (m *Mapping) Size() uint32 {
	return uint32(len(m.mem) * WordSize)
}

func (m *Mapping) Close() error {
	m.mem = nil
	err := unix.Munmap(m.data)
	m.data = nil
	if closeErr := m.file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Memory is a heap backed Window with the same access semantics as Mapping
type Memory struct {
	mem []uint32
}

var _ Window = &Memory{}

// NewMemory allocates a zeroed window of size bytes
func NewMemory(size uint32) *Memory {
	return &Memory{mem: make([]uint32, size/WordSize)}
}

// MemoryOpener returns an Opener handing out the given memory
func MemoryOpener(m *Memory) Opener {
	return func() (Window, error) {
		return m, nil
	}
}

func (m *Memory) ReadWord(offset uint32) (uint32, error) {
	if err := checkOffset(offset, m.Size()); err != nil {
		return 0, err
	}
	return atomic.LoadUint32(&m.mem[offset/WordSize]), nil
}

func (m *Memory) WriteWord(offset uint32, value uint32) error {
	if err := checkOffset(offset, m.Size()); err != nil {
		return err
	}
	atomic.StoreUint32(&m.mem[offset/WordSize], value)
	return nil
}

func (m *Memory) Size() uint32 {
	return uint32(len(m.mem) * WordSize)
}

func (m *Memory) Close() error {
	return nil
}
