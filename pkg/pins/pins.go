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
	"fmt"
)

// Direction of a digital pin
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "OUT"
	}
	return "IN"
}

// Name maps a protocol pin name to its id
type Name struct {
	Name string
	ID   int
}

var AnalogPins = []Name{
	{"AOUT0", 0},
	{"AOUT1", 1},
	{"AOUT2", 2},
	{"AOUT3", 3},
	{"AIN0", 4},
	{"AIN1", 5},
	{"AIN2", 6},
	{"AIN3", 7},
}

var DigitalPins = []Name{
	{"LED0", 0},
	{"LED1", 1},
	{"LED2", 2},
	{"LED3", 3},
	{"LED4", 4},
	{"LED5", 5},
	{"LED6", 6},
	{"LED7", 7},
	{"DIO0_P", 8},
	{"DIO1_P", 9},
	{"DIO2_P", 10},
	{"DIO3_P", 11},
	{"DIO4_P", 12},
	{"DIO5_P", 13},
	{"DIO6_P", 14},
	{"DIO7_P", 15},
	{"DIO0_N", 16},
	{"DIO1_N", 17},
	{"DIO2_N", 18},
	{"DIO3_N", 19},
	{"DIO4_N", 20},
	{"DIO5_N", 21},
	{"DIO6_N", 22},
	{"DIO7_N", 23},
}

var Directions = []Name{
	{"IN", int(In)},
	{"OUT", int(Out)},
}

const (
	NumAnalogOutputs = 4
	NumAnalogPins    = 8
	NumLEDs          = 8
	NumDigitalPins   = 24

	AnalogOutMax = 1.8
	AnalogInMax  = 7.0
)

// ErrUnknownPin returned when a name is not in the lookup table
type ErrUnknownPin struct {
	Name string
}

func (e ErrUnknownPin) Error() string {
	return fmt.Sprintf("Unknown pin '%s'", e.Name)
}

// ErrPin returned when an operation does not apply to a pin
type ErrPin struct {
	ID   int
	What string
}

func (e ErrPin) Error() string {
	return fmt.Sprintf("Pin %d: %s", e.ID, e.What)
}

// Lookup returns the id registered for name
func Lookup(table []Name, name string) (int, error) {
	for _, n := range table {
		if n.Name == name {
			return n.ID, nil
		}
	}
	return -1, ErrUnknownPin{Name: name}
}

// IO gives access to the analog and digital pins of the board
type IO interface {
	AnalogReset() error
	AnalogGet(pin int) (float64, error)
	AnalogSet(pin int, volts float64) error
	DigitalReset() error
	DigitalGet(pin int) (bool, error)
	DigitalSet(pin int, high bool) error
	DirectionGet(pin int) (Direction, error)
	DirectionSet(pin int, dir Direction) error
}

func checkAnalog(pin int) error {
	if pin < 0 || pin >= NumAnalogPins {
		return ErrPin{ID: pin, What: "not an analog pin"}
	}
	return nil
}

func checkAnalogOut(pin int, volts float64) error {
	if pin < 0 || pin >= NumAnalogOutputs {
		return ErrPin{ID: pin, What: "not an analog output"}
	}
	if volts < 0 || volts > AnalogOutMax {
		return ErrPin{ID: pin, What: fmt.Sprintf("value %g V out of range 0-%g V", volts, AnalogOutMax)}
	}
	return nil
}

func checkDigital(pin int) error {
	if pin < 0 || pin >= NumDigitalPins {
		return ErrPin{ID: pin, What: "not a digital pin"}
	}
	return nil
}

func isLED(pin int) bool {
	return pin < NumLEDs
}
