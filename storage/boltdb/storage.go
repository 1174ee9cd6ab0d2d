package boltdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"git.sr.ht/~mariusor/hestia/calendar"
	"git.sr.ht/~mariusor/hestia/storage"
)

type LoggerFn func(string, ...interface{})

type repo struct {
	d    *bolt.DB
	root []byte
	path string
	log  LoggerFn
	err  LoggerFn
}

const (
	rootBucket  = "cal"
	DefaultFile = "timetable.bdb"
)

// Config
type Config struct {
	Path  string
	LogFn LoggerFn
	ErrFn LoggerFn
}

// New returns a new lecture repository
func New(c Config) *repo {
	b := repo{
		root: []byte(rootBucket),
		path: c.Path,
		log:  func(string, ...interface{}) {},
		err:  func(string, ...interface{}) {},
	}
	if c.ErrFn != nil {
		b.err = c.ErrFn
	}
	if c.LogFn != nil {
		b.log = c.LogFn
	}

	return &b
}

func (r *repo) open() error {
	var err error
	r.d, err = bolt.Open(r.path, 0600, nil)
	if err != nil {
		return fmt.Errorf("could not open db %s %w", r.path, err)
	}
	err = r.d.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(r.root)
		if err != nil {
			return fmt.Errorf("unable to create root bucket %s: %w", r.root, err)
		}
		if !root.Writable() {
			return fmt.Errorf("non writeable root bucket %s", r.root)
		}
		return nil
	})
	return err
}

// close closes the boltdb database if possible.
func (r *repo) close() error {
	if r.d == nil {
		return nil
	}
	return r.d.Close()
}

// LoadLectures returns the lectures stored inside the cursor's window,
// in bucket order (ascending by date path).
func (r *repo) LoadLectures(cursor storage.DateCursor) ([]calendar.Lecture, error) {
	var err error
	err = r.open()
	if err != nil {
		return nil, err
	}
	defer r.close()
	return loadFromBucket(r.d, r.root, cursor)
}

func loadFromBucketRecursive(b *bolt.Bucket, min, max []byte) []calendar.Lecture {
	lectures := make([]calendar.Lecture, 0)
	if b == nil {
		return lectures
	}

	c := b.Cursor()

	first := func() ([]byte, []byte) { return c.First() }
	compare := func(k, v []byte) bool { return k != nil }
	if min != nil {
		first = func() ([]byte, []byte) { return c.Seek(min) }
	}
	if max != nil {
		compare = func(k, v []byte) bool { return k != nil && bytes.Compare(k, max) <= 0 }
	}
	for key, raw := first(); compare(key, raw); key, raw = c.Next() {
		if raw == nil {
			// this is a bucket mate: descend!
			lectures = append(lectures, loadFromBucketRecursive(b.Bucket(key), nil, nil)...)
		} else {
			lec, _ := loadItem(raw)
			if lec.IsValid() {
				lectures = append(lectures, lec)
			}
		}
	}

	return lectures
}

func loadFromBucket(db *bolt.DB, root []byte, cursor storage.DateCursor) ([]calendar.Lecture, error) {
	lectures := make([]calendar.Lecture, 0)

	err := db.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(root)
		if rb == nil {
			return fmt.Errorf("invalid bucket %s", root)
		}

		min, max := getCursorPaths(cursor)
		b, min, max, err := descendToLastCommonBucket(rb, min, max)
		lectures = append(lectures, loadFromBucketRecursive(b, min, max)...)
		return err
	})

	return lectures, err
}

func loadItem(raw []byte) (calendar.Lecture, error) {
	lec := calendar.Lecture{}
	if len(raw) == 0 {
		return lec, fmt.Errorf("empty raw item")
	}
	err := json.Unmarshal(raw, &lec)
	return lec, err
}

var pathSeparator = []byte{'/'}

func getCursorPaths(c storage.DateCursor) ([]byte, []byte) {
	var min, max []byte
	if c.D < 0 {
		max = itemBucketPath(c.T)
		min = itemBucketPath(c.T.Add(c.D))
	} else {
		min = itemBucketPath(c.T)
		max = itemBucketPath(c.T.Add(c.D))
	}
	return min, max
}

func itemBucketPath(date time.Time) []byte {
	pathEl := make([][]byte, 0)

	pathEl = append(pathEl, []byte(date.Format("06")))
	pathEl = append(pathEl, []byte(date.Format("01")))
	pathEl = append(pathEl, []byte(date.Format("02")))

	return bytes.Join(pathEl, pathSeparator)
}

func descendToLastCommonBucket(root *bolt.Bucket, min, max []byte) (*bolt.Bucket, []byte, []byte, error) {
	minPieces := bytes.Split(min, pathSeparator)
	maxPieces := bytes.Split(max, pathSeparator)

	b := root
	lvl := 0
	// the length should be the same
	for i, k := range minPieces {
		if !bytes.Equal(k, maxPieces[i]) {
			break
		}
		cb := b.Bucket(k)
		if cb == nil {
			break
		}
		lvl = i
		b = cb
	}
	min = bytes.Join(minPieces[lvl+1:], pathSeparator)
	max = bytes.Join(maxPieces[lvl+1:], pathSeparator)
	return b, min, max, nil
}

func descendInBucket(root *bolt.Bucket, path []byte, create bool) (*bolt.Bucket, []byte, error) {
	if root == nil {
		return nil, path, fmt.Errorf("trying to descend into nil bucket")
	}
	if len(path) == 0 {
		return root, path, nil
	}
	buckets := bytes.Split(path, pathSeparator)

	lvl := 0
	b := root
	// descend the bucket tree up to the last found bucket
	for _, name := range buckets {
		lvl++
		if len(name) == 0 {
			continue
		}
		if b == nil {
			return root, path, fmt.Errorf("trying to load from nil bucket")
		}
		var cb *bolt.Bucket
		if create {
			cb, _ = b.CreateBucketIfNotExists(name)
		} else {
			cb = b.Bucket(name)
		}
		if cb == nil {
			lvl--
			break
		}
		b = cb
	}
	path = bytes.Join(buckets[lvl:], pathSeparator)

	return b, path, nil
}

// SaveLectures
func (r *repo) SaveLectures(lectures ...calendar.Lecture) error {
	var err error
	err = r.open()
	if err != nil {
		return err
	}
	defer r.close()

	for _, lec := range lectures {
		if err = save(r, lec); err != nil {
			r.err("Error saving lecture %s: %s", lec.Title, err)
		}
	}
	return err
}

func save(r *repo, lec calendar.Lecture) error {
	path := itemBucketPath(lec.Start)

	return r.d.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(r.root)
		if root == nil {
			return fmt.Errorf("invalid bucket %s", r.root)
		}
		if !root.Writable() {
			return fmt.Errorf("non writeable bucket %s", r.root)
		}
		b, path, err := descendInBucket(root, path, true)
		if err != nil {
			return fmt.Errorf("unable to find %s in root bucket: %w", path, err)
		}
		if !b.Writable() {
			return fmt.Errorf("non writeable bucket %s", path)
		}
		entryBytes, err := json.Marshal(lec)
		if err != nil {
			return fmt.Errorf("could not marshal object: %w", err)
		}
		objectID := []byte(fmt.Sprintf("%s-%s", lec.Start.Format("1504"), lec.Title))
		err = b.Put(objectID, entryBytes)
		if err != nil {
			return fmt.Errorf("could not store encoded object: %w", err)
		}

		return nil
	})
}
