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

package config

import "time"

const (
	ConfigDir  = ".go-counter"
	ConfigFile = "config"
	HistoryDB  = "history.db"

	DefaultServerAddress    = "0.0.0.0"
	DefaultServerPort       = 5000
	DefaultMaxCommandLength = 4096

	DefaultApiEnabled = true
	DefaultApiAddress = "127.0.0.1"
	DefaultApiPort    = 8000

	DefaultMemPath      = "/dev/mem"
	DefaultWaitTimeout  = Duration(0)
	DefaultPollInterval = Duration(100 * time.Microsecond)
	DefaultMaxCounts    = 100000
	DefaultPins         = PinsBoard

	DefaultHistoryEnabled    = true
	DefaultHistoryMaxRecords = 10000

	DefaultLogLevel = "info"
)

const (
	PinsBoard  = "board"
	PinsMemory = "memory"
)
