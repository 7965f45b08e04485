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

package command

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"jinr.ru/greenlab/go-counter/pkg/config"
	"jinr.ru/greenlab/go-counter/pkg/handlers"
	"jinr.ru/greenlab/go-counter/pkg/pins"
	"jinr.ru/greenlab/go-counter/pkg/sim"
	srvcounter "jinr.ru/greenlab/go-counter/pkg/srv/counter"
)

func newApiClient(t *testing.T) *ApiClient {
	t.Helper()
	h, err := srvcounter.OpenHistory(&config.HistoryConfig{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), config.HistoryDB),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })

	e := newEngine(t)
	table := handlers.New(e, pins.NewMemory(), handlers.Options{Recorder: h})
	api, err := srvcounter.NewApiServer(&config.ApiConfig{Enabled: true}, e, table, srvcounter.WithHistory(h))
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	c := NewApiClient(config.NewDefaultConfig())
	c.ApiPrefix = ts.URL + "/api"
	return c
}

func TestNewApiClient(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"0.0.0.0", "http://127.0.0.1:8000/api"},
		{"", "http://127.0.0.1:8000/api"},
		{"::", "http://127.0.0.1:8000/api"},
		{"192.168.1.100", "http://192.168.1.100:8000/api"},
		{"rp-f0a1b2.local", "http://rp-f0a1b2.local:8000/api"},
	}
	for _, tt := range tests {
		cfg := config.NewDefaultConfig()
		cfg.ApiConfig.Address = tt.address
		cfg.ApiConfig.Port = 8000
		if got := NewApiClient(cfg).ApiPrefix; got != tt.want {
			t.Errorf("%q: got %s, want %s", tt.address, got, tt.want)
		}
	}
}

func TestApiClient(t *testing.T) {
	c := newApiClient(t)

	state, err := c.State()
	if err != nil {
		t.Fatal(err)
	}
	if state.State != "idle" {
		t.Errorf("state %+v", state)
	}

	info, err := c.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.DNA != fmt.Sprintf("0x%08x", sim.DefaultDNA) {
		t.Errorf("info %+v", info)
	}

	value, err := c.RegRead("0x28")
	if err != nil {
		t.Fatal(err)
	}
	if value != info.DNA {
		t.Errorf("reg 0x28 = %s", value)
	}
	var status ErrStatus
	if _, err := c.RegRead("0x3"); !errors.As(err, &status) || status.Status != "400 Bad Request" {
		t.Errorf("unaligned read: %v", err)
	}

	for _, line := range []string{"COUNTER:BINS:NO 7", "COUNTER:TIME 0.01", "COUNTER:COUNT? 2"} {
		result, err := c.Command(line)
		if err != nil {
			t.Fatal(err)
		}
		if result.Error {
			t.Fatalf("%s: %s", line, result.Response)
		}
	}
	result, err := c.Command("FOO:BAR")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Error || result.Response != "ERR: Unknown command FOO:BAR" {
		t.Errorf("unknown command: %+v", result)
	}

	settings, err := c.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.NumberOfBins != 7 || settings.CountingTime != 0.01 {
		t.Errorf("settings %+v", settings)
	}

	counts, err := c.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 {
		t.Errorf("counts %v", counts)
	}

	records, err := c.History(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || len(records[0].Channels[0]) != 2 {
		t.Errorf("history %+v", records)
	}
}
