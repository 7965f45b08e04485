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

package pins

import (
	"jinr.ru/greenlab/go-counter/pkg/regs"
)

// Housekeeping and analog mixed signal register windows
const (
	HousekeepingBaseAddr = 0x40000000
	HousekeepingBaseSize = 0x1000
	AMSBaseAddr          = 0x40400000
	AMSBaseSize          = 0x1000
)

// housekeeping offsets
const (
	hkDirP uint32 = 0x10
	hkDirN uint32 = 0x14
	hkOutP uint32 = 0x18
	hkOutN uint32 = 0x1C
	hkInP  uint32 = 0x20
	hkInN  uint32 = 0x24
	hkLED  uint32 = 0x30
)

// ams offsets
const (
	amsIn   uint32 = 0x00
	amsDAC  uint32 = 0x20
	amsStep uint32 = 4

	analogInRaw  = 0xFFF
	analogOutRaw = 156
	dacShift     = 16
)

// Board accesses the pins through the Red Pitaya system registers
type Board struct {
	hk  *regs.Block
	ams *regs.Block
}

var _ IO = &Board{}

// NewBoard ...
func NewBoard(hk, ams *regs.Block) *Board {
	return &Board{
		hk:  hk,
		ams: ams,
	}
}

// NewBoardMapping maps both windows from path, usually /dev/mem
func NewBoardMapping(path string) *Board {
	return NewBoard(
		regs.NewBlock("housekeeping", regs.MapOpener(path, HousekeepingBaseAddr, HousekeepingBaseSize)),
		regs.NewBlock("ams", regs.MapOpener(path, AMSBaseAddr, AMSBaseSize)),
	)
}

func (b *Board) Open() error {
	if err := b.hk.Open(); err != nil {
		return err
	}
	if err := b.ams.Open(); err != nil {
		_ = b.hk.Close()
		return err
	}
	return nil
}

func (b *Board) Close() error {
	err := b.ams.Close()
	if hkErr := b.hk.Close(); err == nil {
		err = hkErr
	}
	return err
}

func (b *Board) AnalogReset() error {
	for i := 0; i < NumAnalogOutputs; i++ {
		if err := b.ams.WriteWord(amsDAC+uint32(i)*amsStep, 0); err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) AnalogGet(pin int) (float64, error) {
	if err := checkAnalog(pin); err != nil {
		return 0, err
	}
	if pin < NumAnalogOutputs {
		raw, err := b.ams.ReadField(amsDAC+uint32(pin)*amsStep, 0xFF, dacShift)
		if err != nil {
			return 0, err
		}
		return float64(raw) / analogOutRaw * AnalogOutMax, nil
	}
	raw, err := b.ams.ReadField(amsIn+uint32(pin-NumAnalogOutputs)*amsStep, analogInRaw, 0)
	if err != nil {
		return 0, err
	}
	return float64(raw) / analogInRaw * AnalogInMax, nil
}

func (b *Board) AnalogSet(pin int, volts float64) error {
	if err := checkAnalogOut(pin, volts); err != nil {
		return err
	}
	raw := uint32(volts / AnalogOutMax * analogOutRaw)
	return b.ams.WriteWord(amsDAC+uint32(pin)*amsStep, raw<<dacShift)
}

func (b *Board) DigitalReset() error {
	for _, offset := range []uint32{hkDirP, hkDirN, hkOutP, hkOutN, hkLED} {
		if err := b.hk.WriteWord(offset, 0); err != nil {
			return err
		}
	}
	return nil
}

// locate returns the register and bit of a digital pin
func locate(pin int, led, p, n uint32) (uint32, uint) {
	switch {
	case isLED(pin):
		return led, uint(pin)
	case pin < NumLEDs+8:
		return p, uint(pin - NumLEDs)
	default:
		return n, uint(pin - NumLEDs - 8)
	}
}

func (b *Board) DigitalGet(pin int) (bool, error) {
	if err := checkDigital(pin); err != nil {
		return false, err
	}
	offset, bit := locate(pin, hkLED, hkInP, hkInN)
	v, err := b.hk.ReadField(offset, 1, bit)
	return v != 0, err
}

func (b *Board) DigitalSet(pin int, high bool) error {
	if err := checkDigital(pin); err != nil {
		return err
	}
	var v uint32
	if high {
		v = 1
	}
	offset, bit := locate(pin, hkLED, hkOutP, hkOutN)
	return b.hk.WriteField(offset, v, 1, bit)
}

func (b *Board) DirectionGet(pin int) (Direction, error) {
	if err := checkDigital(pin); err != nil {
		return In, err
	}
	if isLED(pin) {
		return Out, nil
	}
	offset, bit := locate(pin, hkLED, hkDirP, hkDirN)
	v, err := b.hk.ReadField(offset, 1, bit)
	if err != nil {
		return In, err
	}
	return Direction(v), nil
}

func (b *Board) DirectionSet(pin int, dir Direction) error {
	if err := checkDigital(pin); err != nil {
		return err
	}
	if isLED(pin) {
		if dir != Out {
			return ErrPin{ID: pin, What: "LEDs are outputs only"}
		}
		return nil
	}
	offset, bit := locate(pin, hkLED, hkDirP, hkDirN)
	return b.hk.WriteField(offset, uint32(dir), 1, bit)
}
