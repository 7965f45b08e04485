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

package dispatch

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand returned when no handler is registered for a name
type ErrUnknownCommand struct {
	Name string
}

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("Unknown command %s", e.Name)
}

// ErrMissingArgument returned when a handler gets fewer arguments than it needs
type ErrMissingArgument struct {
	What string
}

func (e ErrMissingArgument) Error() string {
	return e.What
}

// ErrInvalidArgument returned when an argument can not be parsed
type ErrInvalidArgument struct {
	Value string
	What  string
}

func (e ErrInvalidArgument) Error() string {
	if e.What == "" {
		return fmt.Sprintf("Invalid argument '%s'", e.Value)
	}
	return fmt.Sprintf("Invalid %s '%s'", e.What, e.Value)
}

// ErrAllocation returned when a response would not fit in memory
var ErrAllocation = errors.New("OOM?")
