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
	"fmt"
)

// ErrRange returned when an argument is out of its documented bounds
type ErrRange struct {
	What string
}

func (e ErrRange) Error() string {
	return e.What
}

// ErrUnknownState returned when the control register holds a value outside the FSM
type ErrUnknownState struct {
	Value uint32
}

func (e ErrUnknownState) Error() string {
	return fmt.Sprintf("Unknown state %d", e.Value)
}

// ErrTimeout returned when the counter did not reach a state in time
type ErrTimeout struct {
	State State
}

func (e ErrTimeout) Error() string {
	return fmt.Sprintf("Timeout while waiting for state %s", e.State)
}
