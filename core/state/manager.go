package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"adlottery/storage"
)

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Manager stages reads and writes for a single operation on top of the
// persistent database. Writes stay in the overlay until Commit flushes them in
// one atomic batch; Discard drops them.
type Manager struct {
	db      storage.Database
	overlay map[string]pendingWrite
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, overlay: make(map[string]pendingWrite)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) get(hashed []byte) ([]byte, error) {
	if pending, ok := m.overlay[string(hashed)]; ok {
		if pending.deleted {
			return nil, nil
		}
		return pending.value, nil
	}
	if m.db == nil {
		return nil, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (m *Manager) put(hashed []byte, value []byte) {
	m.overlay[string(hashed)] = pendingWrite{value: append([]byte(nil), value...)}
}

// KVPut stores the RLP encoding of value under the supplied key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.put(kvKey(key), encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.overlay[string(kvKey(key))] = pendingWrite{deleted: true}
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	list, err := m.kvByteList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVRemove deletes value from the byte slice list stored under key. Missing
// values are ignored.
func (m *Manager) KVRemove(key []byte, value []byte) error {
	list, err := m.kvByteList(key)
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, existing := range list {
		if !bytes.Equal(existing, value) {
			filtered = append(filtered, existing)
		}
	}
	return m.KVPut(key, filtered)
}

func (m *Manager) kvByteList(key []byte) ([][]byte, error) {
	var list [][]byte
	if err := m.KVGetList(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice to avoid nil
// surprises for callers.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

// Dirty reports the number of staged writes and deletes.
func (m *Manager) Dirty() int {
	return len(m.overlay)
}

// Commit flushes all staged writes to the database in a single batch. The
// overlay is cleared only when the batch has been written.
func (m *Manager) Commit() error {
	if len(m.overlay) == 0 {
		return nil
	}
	if m.db == nil {
		return fmt.Errorf("state: no database configured")
	}
	keys := make([]string, 0, len(m.overlay))
	for k := range m.overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := m.db.NewBatch()
	for _, k := range keys {
		pending := m.overlay[k]
		if pending.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), pending.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit batch: %w", err)
	}
	m.overlay = make(map[string]pendingWrite)
	return nil
}

// Discard drops all staged writes.
func (m *Manager) Discard() {
	m.overlay = make(map[string]pendingWrite)
}
