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
	"sync"
)

// Memory keeps pin values in process memory. Analog inputs read back
// the value last stored with SetInput.
type Memory struct {
	mu      sync.Mutex
	analog  [NumAnalogPins]float64
	digital [NumDigitalPins]bool
	dirs    [NumDigitalPins]Direction
}

var _ IO = &Memory{}

// NewMemory ...
func NewMemory() *Memory {
	m := &Memory{}
	_ = m.DigitalReset()
	return m
}

// SetInput sets the voltage seen on an analog input
func (m *Memory) SetInput(pin int, volts float64) error {
	if err := checkAnalog(pin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analog[pin] = volts
	return nil
}

func (m *Memory) AnalogReset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < NumAnalogOutputs; i++ {
		m.analog[i] = 0
	}
	return nil
}

func (m *Memory) AnalogGet(pin int) (float64, error) {
	if err := checkAnalog(pin); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analog[pin], nil
}

func (m *Memory) AnalogSet(pin int, volts float64) error {
	if err := checkAnalogOut(pin, volts); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analog[pin] = volts
	return nil
}

func (m *Memory) DigitalReset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.digital {
		m.digital[i] = false
		m.dirs[i] = In
		if isLED(i) {
			m.dirs[i] = Out
		}
	}
	return nil
}

func (m *Memory) DigitalGet(pin int) (bool, error) {
	if err := checkDigital(pin); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.digital[pin], nil
}

func (m *Memory) DigitalSet(pin int, high bool) error {
	if err := checkDigital(pin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirs[pin] != Out {
		return ErrPin{ID: pin, What: "is an input"}
	}
	m.digital[pin] = high
	return nil
}

func (m *Memory) DirectionGet(pin int) (Direction, error) {
	if err := checkDigital(pin); err != nil {
		return In, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[pin], nil
}

func (m *Memory) DirectionSet(pin int, dir Direction) error {
	if err := checkDigital(pin); err != nil {
		return err
	}
	if isLED(pin) && dir != Out {
		return ErrPin{ID: pin, What: "LEDs are outputs only"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[pin] = dir
	return nil
}
