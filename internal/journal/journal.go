// Package journal keeps a bounded history of sync pass reports in a bbolt file.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	evsync "github.com/beekhof/discord-event-sync/internal/sync"

	bolt "go.etcd.io/bbolt"
)

const passesBucket = "passes"

// DefaultKeep is the number of reports retained when Config.Keep is zero.
const DefaultKeep = 500

type LoggerFn func(string, ...any)

// Config describes where the journal lives and how much it retains.
type Config struct {
	Path string
	// Keep bounds the number of stored reports; older ones are pruned on Append.
	Keep  int
	LogFn LoggerFn
}

// Journal stores pass reports. The database is opened for each operation
// and closed afterwards so that other processes can read it between passes.
type Journal struct {
	d    *bolt.DB
	root []byte
	path string
	keep int
	log  LoggerFn
}

// New returns a journal backed by the file at c.Path.
func New(c Config) *Journal {
	j := Journal{
		root: []byte(passesBucket),
		path: c.Path,
		keep: c.Keep,
		log:  func(string, ...any) {},
	}
	if j.keep <= 0 {
		j.keep = DefaultKeep
	}
	if c.LogFn != nil {
		j.log = c.LogFn
	}
	return &j
}

func (j *Journal) open() error {
	var err error
	j.d, err = bolt.Open(j.path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("could not open journal %s: %w", j.path, err)
	}
	err = j.d.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(j.root); err != nil {
			return fmt.Errorf("unable to create bucket %s: %w", j.root, err)
		}
		return nil
	})
	if err != nil {
		j.d.Close()
		j.d = nil
	}
	return err
}

func (j *Journal) close() error {
	if j.d == nil {
		return nil
	}
	err := j.d.Close()
	j.d = nil
	return err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Append stores r and prunes the oldest reports beyond the configured limit.
func (j *Journal) Append(r *evsync.Report) error {
	if err := j.open(); err != nil {
		return err
	}
	defer j.close()

	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("could not marshal report: %w", err)
	}

	return j.d.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(j.root)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("could not allocate journal key: %w", err)
		}
		if err := b.Put(itob(seq), raw); err != nil {
			return fmt.Errorf("could not store report: %w", err)
		}

		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		excess := len(keys) - j.keep
		if excess <= 0 {
			return nil
		}
		for _, k := range keys[:excess] {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("could not prune journal: %w", err)
			}
		}
		j.log("Pruned %d reports from the journal", excess)
		return nil
	})
}

// Recent returns up to n reports, newest first. A non-positive n returns
// none.
func (j *Journal) Recent(n int) ([]evsync.Report, error) {
	if n <= 0 {
		return []evsync.Report{}, nil
	}
	if err := j.open(); err != nil {
		return nil, err
	}
	defer j.close()

	reports := make([]evsync.Report, 0, n)
	err := j.d.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(j.root).Cursor()
		for k, raw := c.Last(); k != nil && len(reports) < n; k, raw = c.Prev() {
			var r evsync.Report
			if err := json.Unmarshal(raw, &r); err != nil {
				j.log("Skipping unreadable journal entry %x: %s", k, err)
				continue
			}
			reports = append(reports, r)
		}
		return nil
	})
	return reports, err
}
