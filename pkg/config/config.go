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

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"
)

// Duration is a time.Duration written as a string like "100us" or "5s"
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type ServerConfig struct {
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
	// Bytes a client may send without a delimiter
	MaxCommandLength int `json:"max_command_length,omitempty"`
}

type ApiConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
}

type DeviceConfig struct {
	MemPath  string `json:"mem_path,omitempty"`
	Simulate bool   `json:"simulate"`
	// 0 waits until the state is reached or the request is cancelled
	WaitTimeout  Duration `json:"wait_timeout"`
	PollInterval Duration `json:"poll_interval"`
	// Unsynchronized lets runs of different connections interleave
	Unsynchronized bool   `json:"unsynchronized"`
	MaxCounts      int    `json:"max_counts,omitempty"`
	Pins           string `json:"pins,omitempty"`
}

type HistoryConfig struct {
	Enabled    bool   `json:"enabled"`
	DBPath     string `json:"db_path,omitempty"`
	MaxRecords int    `json:"max_records"`
}

type Config struct {
	*ServerConfig  `json:"server,omitempty"`
	*ApiConfig     `json:"api,omitempty"`
	*DeviceConfig  `json:"device,omitempty"`
	*HistoryConfig `json:"history,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
	filepath string
}

// Path returns the file the config is loaded from and persisted to
func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Marshal renders the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoadConfig merges the file over the current values. Sections missing in
// the file keep their defaults.
func (c *Config) LoadConfig() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return c.Validate()
}

// Load is LoadConfig tolerating a missing file
func (c *Config) Load() error {
	if err := c.LoadConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Validate checks the values that can not be fixed by the server itself
func (c *Config) Validate() error {
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		return ErrInvalid{What: "server port out of range"}
	}
	if c.ApiConfig.Enabled && (c.ApiConfig.Port <= 0 || c.ApiConfig.Port > 65535) {
		return ErrInvalid{What: "api port out of range"}
	}
	if c.DeviceConfig.Pins != PinsBoard && c.DeviceConfig.Pins != PinsMemory {
		return ErrInvalid{What: "device pins must be " + PinsBoard + " or " + PinsMemory}
	}
	if c.DeviceConfig.WaitTimeout < 0 || c.DeviceConfig.PollInterval < 0 {
		return ErrInvalid{What: "negative device durations"}
	}
	return nil
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultHistoryPath() string {
	return filepath.Join(homeDir(), ConfigDir, HistoryDB)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return home
}

func NewDefaultConfig() *Config {
	return NewConfig(DefaultConfigPath())
}

// NewConfig returns the defaults bound to path
func NewConfig(path string) *Config {
	return &Config{
		ServerConfig: &ServerConfig{
			Address:          DefaultServerAddress,
			Port:             DefaultServerPort,
			MaxCommandLength: DefaultMaxCommandLength,
		},
		ApiConfig: &ApiConfig{
			Enabled: DefaultApiEnabled,
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		DeviceConfig: &DeviceConfig{
			MemPath:      DefaultMemPath,
			WaitTimeout:  DefaultWaitTimeout,
			PollInterval: DefaultPollInterval,
			MaxCounts:    DefaultMaxCounts,
			Pins:         DefaultPins,
		},
		HistoryConfig: &HistoryConfig{
			Enabled:    DefaultHistoryEnabled,
			DBPath:     DefaultHistoryPath(),
			MaxRecords: DefaultHistoryMaxRecords,
		},
		LogLevel: DefaultLogLevel,
		filepath: path,
	}
}
