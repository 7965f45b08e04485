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

package counter

import (
	"jinr.ru/greenlab/go-counter/pkg/regs"
)

// Counter core register window. The core sits 0x00300000 above the
// FPGA base of the AXI GP0 port.
const (
	FPGABaseAddr      = 0x40000000
	CounterBaseOffset = 0x00300000
	CounterBaseAddr   = FPGABaseAddr + CounterBaseOffset
	CounterBaseSize   = 0x00100000
)

const (
	ClockFrequency = 125000000
	NumChannels    = 2
	MaxBins        = 4096
)

const (
	BinsCh1Offset      uint32 = 0x00010000
	BinsCh2Offset      uint32 = 0x00014000
	DurationBinsOffset uint32 = 0x00018000
	BinByteSize        uint32 = 4
)

type RegAlias int

const (
	RegControl RegAlias = iota
	RegTimeout
	RegCountsCh1 // read only
	RegCountsCh2 // read only
	RegNumberOfBins
	RegRepetitions
	RegPredelay
	RegConfig
	RegAddress    // read only
	RegRepetition // read only
	RegDNA        // read only
	RegClock      // read only
	RegDebugMode
	RegDuration // read only
	RegAliasLimit
)

var RegMap = map[RegAlias]uint32{
	RegControl:      0x0000,
	RegTimeout:      0x0004,
	RegCountsCh1:    0x0008,
	RegCountsCh2:    0x000C,
	RegNumberOfBins: 0x0010,
	RegRepetitions:  0x0014,
	RegPredelay:     0x0018,
	RegConfig:       0x001C,
	RegAddress:      0x0020,
	RegRepetition:   0x0024,
	RegDNA:          0x0028,
	RegClock:        0x002C,
	RegDebugMode:    0x0030,
	RegDuration:     0x0034,
}

var RegNames = map[RegAlias]string{
	RegControl:      "control",
	RegTimeout:      "timeout",
	RegCountsCh1:    "counts_ch1",
	RegCountsCh2:    "counts_ch2",
	RegNumberOfBins: "number_of_bins",
	RegRepetitions:  "repetitions",
	RegPredelay:     "predelay",
	RegConfig:       "config",
	RegAddress:      "address",
	RegRepetition:   "repetition",
	RegDNA:          "dna",
	RegClock:        "clock",
	RegDebugMode:    "debug_mode",
	RegDuration:     "duration",
}

const (
	ControlMask      uint32 = 0x0000000F
	TimeoutMask      uint32 = 0xFFFFFFFF
	CountsMask       uint32 = 0xFFFFFFFF
	NumberOfBinsMask uint32 = 0x00000FFF
	RepetitionsMask  uint32 = 0x0000FFFF
	PredelayMask     uint32 = 0xFFFFFFFF
	ConfigMask       uint32 = 0x00070F0F
	AddressMask      uint32 = 0x00001FFF
	RepetitionMask   uint32 = 0x0000FFFF
	DNAMask          uint32 = 0xFFFFFFFF
	ClockMask        uint32 = 0xFFFFFFFF
	DebugModeMask    uint32 = 0x00000001
	DurationMask     uint32 = 0xFFFFFFFF
)

// config register sub fields
const (
	ConfigTriggerMaskShift     = 0
	ConfigTriggerInvertShift   = 8
	ConfigTriggerPolarityShift = 16
	ConfigSplitBinsShift       = 17
	ConfigGatingShift          = 18

	TriggerMaskMax = 0xF
)

func field(alias RegAlias, mask uint32) regs.Field {
	return regs.Field{Offset: RegMap[alias], Mask: mask}
}

var (
	FieldControl      = field(RegControl, ControlMask)
	FieldTimeout      = field(RegTimeout, TimeoutMask)
	FieldNumberOfBins = field(RegNumberOfBins, NumberOfBinsMask)
	FieldRepetitions  = field(RegRepetitions, RepetitionsMask)
	FieldPredelay     = field(RegPredelay, PredelayMask)
	FieldAddress      = field(RegAddress, AddressMask)
	FieldRepetition   = field(RegRepetition, RepetitionMask)
	FieldDNA          = field(RegDNA, DNAMask)
	FieldClock        = field(RegClock, ClockMask)
	FieldDebugMode    = field(RegDebugMode, DebugModeMask)
	FieldDuration     = field(RegDuration, DurationMask)

	FieldCounts = [NumChannels]regs.Field{
		field(RegCountsCh1, CountsMask),
		field(RegCountsCh2, CountsMask),
	}

	FieldTriggerMask = regs.Field{
		Offset: RegMap[RegConfig], Mask: TriggerMaskMax, Shift: ConfigTriggerMaskShift,
	}
	FieldTriggerInvert = regs.Field{
		Offset: RegMap[RegConfig], Mask: TriggerMaskMax, Shift: ConfigTriggerInvertShift,
	}
	FieldTriggerPolarity = regs.Field{
		Offset: RegMap[RegConfig], Mask: 0x1, Shift: ConfigTriggerPolarityShift,
	}
	FieldSplitBins = regs.Field{
		Offset: RegMap[RegConfig], Mask: 0x1, Shift: ConfigSplitBinsShift,
	}
	FieldGating = regs.Field{
		Offset: RegMap[RegConfig], Mask: 0x1, Shift: ConfigGatingShift,
	}
)

// BinsOffset is the histogram base of a channel
var BinsOffset = [NumChannels]uint32{BinsCh1Offset, BinsCh2Offset}

// BinAddr returns the byte offset of bin i in the histogram at base
func BinAddr(base uint32, i int) uint32 {
	return base + uint32(i)*BinByteSize
}
