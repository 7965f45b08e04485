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
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"jinr.ru/greenlab/go-counter/pkg/config"
	counterpkg "jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/handlers"
)

func openHistory(t *testing.T, path string, maxRecords int) *History {
	t.Helper()
	h, err := OpenHistory(&config.HistoryConfig{Enabled: true, DBPath: path, MaxRecords: maxRecords})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestHistoryRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	h := openHistory(t, path, 3)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := handlers.Run{
			Time:         start.Add(time.Duration(i) * time.Second),
			Command:      "COUNTER:COUNT?",
			CountingTime: 0.5,
			Counts:       []counterpkg.Counts{{float64(i), 10}, {float64(i) + 0.5, 20}},
		}
		if err := h.Record(run); err != nil {
			t.Fatal(err)
		}
	}

	records, err := h.Records(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("%d records kept, want 3", len(records))
	}
	for i, r := range records {
		if want := uint64(5 - i); r.ID != want {
			t.Errorf("record %d has id %d, want %d", i, r.ID, want)
		}
	}
	newest := records[0]
	if !newest.Time.Equal(start.Add(4*time.Second)) || newest.CountingTime != 0.5 {
		t.Errorf("newest %+v", newest)
	}
	if want := [][]float64{{4, 4.5}, {10, 20}}; !reflect.DeepEqual(newest.Channels, want) {
		t.Errorf("channels %v, want %v", newest.Channels, want)
	}

	limited, err := h.Records(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[1].ID != 4 {
		t.Errorf("limited %+v", limited)
	}

	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	h = openHistory(t, path, 3)
	defer h.Close()
	if err := h.Record(handlers.Run{Time: start, Command: "COUNTER:WRSC?", Counts: []counterpkg.Counts{{1, 2}}}); err != nil {
		t.Fatal(err)
	}
	records, err = h.Records(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0].ID != 6 || records[0].Command != "COUNTER:WRSC?" {
		t.Errorf("after reopen %+v", records)
	}
}

func TestHistoryUnlimited(t *testing.T) {
	h := openHistory(t, filepath.Join(t.TempDir(), "history.db"), 0)
	defer h.Close()
	for i := 0; i < 20; i++ {
		if err := h.Record(handlers.Run{Command: "COUNTER:COUNTS?", Counts: []counterpkg.Counts{{1, 1}}}); err != nil {
			t.Fatal(err)
		}
	}
	records, err := h.Records(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 20 {
		t.Errorf("%d records", len(records))
	}
}
