package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/transcript"
)

var (
	bucketResults = []byte("results")
	bucketEvals   = []byte("evaluations")
)

// BoltStore keeps records in a single bbolt database file. Locations are
// "<bucket>/<key>" strings.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database and its buckets.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketResults, bucketEvals} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveResult(r *models.ResultFile) (string, error) {
	key := transcript.Filename(r.Scenario, r.TaskID, r.Execution.ModelName, r.Execution.Timestamp)
	if err := s.put(bucketResults, key, r); err != nil {
		return "", err
	}
	return "results/" + key, nil
}

func (s *BoltStore) LoadResult(location string) (*models.ResultFile, error) {
	var r models.ResultFile
	if err := s.get(bucketResults, location, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *BoltStore) ListResults() ([]string, error) {
	return s.list(bucketResults, "results/")
}

func (s *BoltStore) SaveEval(rec *models.EvalRecord) (string, error) {
	key := "eval_" + rec.TaskID + "_" + rec.Timestamp.Format("20060102T150405")
	if err := s.put(bucketEvals, key, rec); err != nil {
		return "", err
	}
	return "evaluations/" + key, nil
}

func (s *BoltStore) LoadEval(location string) (*models.EvalRecord, error) {
	var rec models.EvalRecord
	if err := s.get(bucketEvals, location, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltStore) ListEvals() ([]string, error) {
	return s.list(bucketEvals, "evaluations/")
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *BoltStore) get(bucket []byte, location string, v any) error {
	key := trimLocation(location)
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("no record at %q", location)
		}
		return json.Unmarshal(data, v)
	})
}

func (s *BoltStore) list(bucket []byte, prefix string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, _ []byte) error {
			out = append(out, prefix+string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func trimLocation(location string) string {
	for _, p := range []string{"results/", "evaluations/"} {
		if len(location) > len(p) && location[:len(p)] == p {
			return location[len(p):]
		}
	}
	return location
}
