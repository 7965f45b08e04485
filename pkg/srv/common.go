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
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"jinr.ru/greenlab/go-counter/pkg/log"
)

// Endpoint joins a listen address and port
func Endpoint(address string, port int) string {
	return net.JoinHostPort(address, strconv.Itoa(port))
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

// WriteError replies with the error text and status
func WriteError(w http.ResponseWriter, err error, status int) {
	log.Debug("API error %d: %s", status, err)
	http.Error(w, err.Error(), status)
}
