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

package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type LogLevel int

const (
	LogPrefix     = "[go-counter] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelMapping = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

type Logger struct {
	mu    sync.RWMutex
	level LogLevel
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

// ParseLevel converts a level name to LogLevel
func ParseLevel(strLevel string) (LogLevel, error) {
	level, ok := levelMapping[strings.ToLower(strLevel)]
	if !ok {
		return InfoLevel, errors.New("Wrong log level. " + HelpLevels)
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.mu.Lock()
	logger.level = level
	logger.mu.Unlock()
	return nil
}

// Enabled reports whether messages of the given level are written
func Enabled(level LogLevel) bool {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	return logger.level >= level
}

// Init redirects the output and sets the level.
// An unknown level leaves the current one in place and is returned as error.
func Init(out io.Writer, strLevel string) error {
	logger.SetOutput(out)
	return SetLevel(strLevel)
}

// Writer returns the underlying output, e.g. for HTTP access logs
func Writer() io.Writer {
	return logger.Writer()
}

func Error(format string, v ...interface{}) {
	if Enabled(ErrorLevel) {
		logger.Println(fmt.Sprintf(ErrorPrefix+format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if Enabled(WarningLevel) {
		logger.Println(fmt.Sprintf(WarningPrefix+format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if Enabled(InfoLevel) {
		logger.Println(fmt.Sprintf(InfoPrefix+format, v...))
	}
}

func Debug(format string, v ...interface{}) {
	if Enabled(DebugLevel) {
		logger.Println(fmt.Sprintf(DebugPrefix+format, v...))
	}
}
