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

package srv

import (
	"errors"
	"fmt"
)

// ErrCommandTooLong returned when a client sends more bytes than allowed without a delimiter
var ErrCommandTooLong = errors.New("Command too long")

// ErrBadRequest returned when an API request can not be served as sent
type ErrBadRequest struct {
	What string
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("Bad request: %s", e.What)
}
