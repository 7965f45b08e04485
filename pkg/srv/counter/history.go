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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"gopkg.in/yaml.v2"

	"jinr.ru/greenlab/go-counter/pkg/config"
	counterpkg "jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/handlers"
	"jinr.ru/greenlab/go-counter/pkg/log"
)

const (
	HistoryBucket = "runs"
	// bbolt waits this long for the file lock of another process
	HistoryOpenTimeout = time.Second
)

// Record is a stored counting run. Channels holds one list of rates per channel.
type Record struct {
	ID           uint64      `json:"id" yaml:"id"`
	Time         time.Time   `json:"time" yaml:"time"`
	Command      string      `json:"command" yaml:"command"`
	CountingTime float64     `json:"counting_time" yaml:"counting_time"`
	Channels     [][]float64 `json:"channels" yaml:"channels"`
}

// History journals finished counting runs in a bbolt database
type History struct {
	DB         *bbolt.DB
	maxRecords int
}

var _ handlers.Recorder = &History{}

// OpenHistory ... maxRecords <= 0 keeps every run
func OpenHistory(cfg *config.HistoryConfig) (*History, error) {
	log.Debug("Opening history database %s", cfg.DBPath)
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(cfg.DBPath, 0600, &bbolt.Options{Timeout: HistoryOpenTimeout})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(HistoryBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &History{
		DB:         db,
		maxRecords: cfg.MaxRecords,
	}, nil
}

// Close ...
func (h *History) Close() error {
	return h.DB.Close()
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(HistoryBucket))
	if b == nil {
		return nil, fmt.Errorf("Bucket not found: %s", HistoryBucket)
	}
	return b, nil
}

// Record stores a run and drops the oldest ones beyond the configured limit
func (h *History) Record(run handlers.Run) error {
	record := Record{
		Time:         run.Time,
		Command:      run.Command,
		CountingTime: run.CountingTime,
	}
	for ch := 0; ch < counterpkg.NumChannels; ch++ {
		values := make([]float64, len(run.Counts))
		for i, c := range run.Counts {
			values[i] = c[ch]
		}
		record.Channels = append(record.Channels, values)
	}

	return h.DB.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx)
		if err != nil {
			return err
		}
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		record.ID = id
		data, err := yaml.Marshal(&record)
		if err != nil {
			return err
		}
		if err := b.Put(uint64ToByte(id), data); err != nil {
			return err
		}
		log.Debug("Recorded run %d: %s", id, record.Command)
		return h.trim(b, id)
	})
}

// trim deletes records with ids up to newest-maxRecords
func (h *History) trim(b *bbolt.Bucket, newest uint64) error {
	if h.maxRecords <= 0 || newest <= uint64(h.maxRecords) {
		return nil
	}
	limit := uint64ToByte(newest - uint64(h.maxRecords))
	var stale [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil && string(k) <= string(limit); k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Records returns up to limit runs, newest first. limit <= 0 returns all.
func (h *History) Records(limit int) ([]*Record, error) {
	records := []*Record{}
	if err := h.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			record := &Record{}
			if err := yaml.Unmarshal(v, record); err != nil {
				log.Error("Error while unmarshalling run %x: %s", k, err)
				return err
			}
			records = append(records, record)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}
