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
	"errors"
	"math"
	"testing"

	"jinr.ru/greenlab/go-counter/pkg/regs"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		table []Name
		name  string
		id    int
	}{
		{AnalogPins, "AOUT0", 0},
		{AnalogPins, "AIN3", 7},
		{DigitalPins, "LED7", 7},
		{DigitalPins, "DIO0_P", 8},
		{DigitalPins, "DIO7_N", 23},
		{Directions, "OUT", 1},
	}
	for _, tt := range tests {
		id, err := Lookup(tt.table, tt.name)
		if err != nil || id != tt.id {
			t.Errorf("%s: got %d, %v", tt.name, id, err)
		}
	}
	var unknown ErrUnknownPin
	if _, err := Lookup(DigitalPins, "dio0_p"); !errors.As(err, &unknown) {
		t.Errorf("expected ErrUnknownPin, got %v", err)
	}
}

func testIO(t *testing.T, io IO) {
	t.Helper()
	if err := io.DigitalReset(); err != nil {
		t.Fatal(err)
	}
	if err := io.AnalogReset(); err != nil {
		t.Fatal(err)
	}

	if err := io.AnalogSet(1, 0.9); err != nil {
		t.Fatal(err)
	}
	v, err := io.AnalogGet(1)
	if err != nil || math.Abs(v-0.9) > AnalogOutMax/analogOutRaw {
		t.Errorf("analog out: %g, %v", v, err)
	}
	if err := io.AnalogSet(4, 0.5); err == nil {
		t.Error("analog input accepted a value")
	}
	if err := io.AnalogSet(0, 2.5); err == nil {
		t.Error("analog out of range accepted")
	}

	if err := io.DirectionSet(9, Out); err != nil {
		t.Fatal(err)
	}
	if dir, _ := io.DirectionGet(9); dir != Out {
		t.Errorf("direction %s", dir)
	}
	if dir, _ := io.DirectionGet(3); dir != Out {
		t.Errorf("LED direction %s", dir)
	}
	if err := io.DirectionSet(3, In); err == nil {
		t.Error("LED switched to input")
	}
	if err := io.DigitalSet(2, true); err != nil {
		t.Fatal(err)
	}
	if high, _ := io.DigitalGet(2); !high {
		t.Error("LED2 not lit")
	}
	if _, err := io.DigitalGet(24); err == nil {
		t.Error("pin 24 accepted")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testIO(t, m)
	if err := m.SetInput(5, 3.3); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.AnalogGet(5); v != 3.3 {
		t.Errorf("input %g", v)
	}
	if err := m.DigitalSet(20, true); err == nil {
		t.Error("input pin driven")
	}
}

func TestBoard(t *testing.T) {
	hkMem := regs.NewMemory(HousekeepingBaseSize)
	amsMem := regs.NewMemory(AMSBaseSize)
	b := NewBoard(regs.NewBlock("housekeeping", regs.MemoryOpener(hkMem)),
		regs.NewBlock("ams", regs.MemoryOpener(amsMem)))
	if err := b.Open(); err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	testIO(t, b)

	if v, _ := hkMem.ReadWord(hkLED); v != 0x4 {
		t.Errorf("led register 0x%x", v)
	}
	if v, _ := hkMem.ReadWord(hkDirP); v != 0x2 {
		t.Errorf("direction register 0x%x", v)
	}
	if err := b.DigitalSet(17, true); err != nil {
		t.Fatal(err)
	}
	if v, _ := hkMem.ReadWord(hkOutN); v != 0x2 {
		t.Errorf("output N register 0x%x", v)
	}
	_ = hkMem.WriteWord(hkInN, 0x80)
	if high, _ := b.DigitalGet(23); !high {
		t.Error("DIO7_N input not seen")
	}
	_ = amsMem.WriteWord(amsIn+2*amsStep, analogInRaw)
	if v, _ := b.AnalogGet(6); v != AnalogInMax {
		t.Errorf("AIN2 %g", v)
	}
}
