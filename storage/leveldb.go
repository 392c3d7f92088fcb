package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/tolelom/tolnode/core"
)

// LevelDB implements DB using LevelDB. The canonical chain itself is never
// stored here — it lives in a single flat file managed by ChainStore (see
// chainstore.go) — this is used for secondary, non-authoritative state such
// as the mining/adoption indexer.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB database at path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, &IoError{Op: "open leveldb " + path, Err: err}
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, core.ErrNotFound
	}
	return val, err
}

func (l *LevelDB) Set(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) NewIterator(prefix []byte) Iterator {
	return l.db.NewIterator(util.BytesPrefix(prefix), nil)
}

func (l *LevelDB) NewBatch() Batch {
	return &levelBatch{batch: new(leveldb.Batch), db: l.db}
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}

type levelBatch struct {
	batch *leveldb.Batch
	db    *leveldb.DB
}

func (b *levelBatch) Set(key, value []byte) { b.batch.Put(key, value) }
func (b *levelBatch) Delete(key []byte)      { b.batch.Delete(key) }
func (b *levelBatch) Reset()                 { b.batch.Reset() }
func (b *levelBatch) Write() error           { return b.db.Write(b.batch, nil) }
