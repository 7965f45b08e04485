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

package handlers

import (
	"context"

	"jinr.ru/greenlab/go-counter/pkg/pins"
)

func lookupPin(table []pins.Name, args []string, missing string) (int, error) {
	name, err := arg(args, 0, missing)
	if err != nil {
		return 0, err
	}
	return pins.Lookup(table, name)
}

func (h *handlers) analogReset(ctx context.Context, args []string) (string, error) {
	if err := h.io.AnalogReset(); err != nil {
		return "", err
	}
	return OK, nil
}

func (h *handlers) analogGet(ctx context.Context, args []string) (string, error) {
	pin, err := lookupPin(pins.AnalogPins, args, "Specify the analog pin")
	if err != nil {
		return "", err
	}
	v, err := h.io.AnalogGet(pin)
	if err != nil {
		return "", err
	}
	return formatFloat(v), nil
}

func (h *handlers) analogSet(ctx context.Context, args []string) (string, error) {
	pin, err := lookupPin(pins.AnalogPins, args, "Specify the analog pin")
	if err != nil {
		return "", err
	}
	s, err := arg(args, 1, "Specify the pin value")
	if err != nil {
		return "", err
	}
	v, err := parseFloat(s, "pin value")
	if err != nil {
		return "", err
	}
	if err := h.io.AnalogSet(pin, v); err != nil {
		return "", err
	}
	return OK, nil
}

func (h *handlers) digitalReset(ctx context.Context, args []string) (string, error) {
	if err := h.io.DigitalReset(); err != nil {
		return "", err
	}
	return OK, nil
}

func (h *handlers) digitalGet(ctx context.Context, args []string) (string, error) {
	pin, err := lookupPin(pins.DigitalPins, args, "Specify the digital pin")
	if err != nil {
		return "", err
	}
	high, err := h.io.DigitalGet(pin)
	if err != nil {
		return "", err
	}
	return formatFlag(high), nil
}

func (h *handlers) digitalSet(ctx context.Context, args []string) (string, error) {
	pin, err := lookupPin(pins.DigitalPins, args, "Specify the digital pin")
	if err != nil {
		return "", err
	}
	s, err := arg(args, 1, "Specify the pin state (0 or 1)")
	if err != nil {
		return "", err
	}
	high, err := parseFlag(s, "pin state")
	if err != nil {
		return "", err
	}
	if err := h.io.DigitalSet(pin, high); err != nil {
		return "", err
	}
	return OK, nil
}

func (h *handlers) directionGet(ctx context.Context, args []string) (string, error) {
	pin, err := lookupPin(pins.DigitalPins, args, "Specify the digital pin")
	if err != nil {
		return "", err
	}
	dir, err := h.io.DirectionGet(pin)
	if err != nil {
		return "", err
	}
	return dir.String(), nil
}

func (h *handlers) directionSet(ctx context.Context, args []string) (string, error) {
	pin, err := lookupPin(pins.DigitalPins, args, "Specify the digital pin")
	if err != nil {
		return "", err
	}
	s, err := arg(args, 1, "Specify the pin direction (IN or OUT)")
	if err != nil {
		return "", err
	}
	dir, err := pins.Lookup(pins.Directions, s)
	if err != nil {
		return "", err
	}
	if err := h.io.DirectionSet(pin, pins.Direction(dir)); err != nil {
		return "", err
	}
	return OK, nil
}
