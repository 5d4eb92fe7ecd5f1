package txstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kochedykov/MicroOcpp/internal/storage"
)

// DefaultCapacity is the default bound on live slots per connector,
// per spec.md §3.
const DefaultCapacity = 8

type ring struct {
	TxBegin uint32 `json:"txBegin"`
	TxEnd   uint32 `json:"txEnd"`
}

// Store is the per-connector persistent transaction ring of spec.md
// §4.D. It owns no connector logic. A connector holds a pointer to the
// same *Transaction the store keeps in its live map; it does not
// re-resolve through GetTransaction on each access.
type Store struct {
	mu       sync.Mutex
	fs       storage.Filesystem
	capacity uint32
	rings    map[int]*ring
	live     map[int]map[uint32]*Transaction
}

// New returns a Store backed by fs with the given per-connector
// capacity (DefaultCapacity if zero).
func New(fs storage.Filesystem, capacity uint32) *Store {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		fs:       fs,
		capacity: capacity,
		rings:    make(map[int]*ring),
		live:     make(map[int]map[uint32]*Transaction),
	}
}

func ringKey(connectorID int) string {
	return fmt.Sprintf("tx-%d-ring.jsn", connectorID)
}

func txKey(connectorID int, txNr uint32) string {
	return fmt.Sprintf("tx-%d-%d.jsn", connectorID, txNr)
}

func (s *Store) ringFor(connectorID int) *ring {
	r, ok := s.rings[connectorID]
	if !ok {
		r = &ring{}
		s.rings[connectorID] = r
	}
	return r
}

// CreateTransaction allocates the next slot for connectorID. It
// returns nil if the ring is full and its oldest slot holds a
// non-reclaimable record: only a reclaimable prefix of the ring is
// freed, so reclaimable slots behind that record stay occupied
// (spec.md §4.D).
func (s *Store) CreateTransaction(connectorID int, silent bool) *Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.ringFor(connectorID)
	if r.TxEnd-r.TxBegin >= s.capacity {
		s.reclaimLocked(connectorID, r)
		if r.TxEnd-r.TxBegin >= s.capacity {
			return nil
		}
	}

	txNr := r.TxEnd
	tx := NewTransaction(connectorID, txNr, silent)
	r.TxEnd++

	slots, ok := s.live[connectorID]
	if !ok {
		slots = make(map[uint32]*Transaction)
		s.live[connectorID] = slots
	}
	slots[txNr] = tx
	return tx
}

// reclaimLocked advances TxBegin past any prefix of reclaimable slots,
// freeing room for new transactions without losing unreclaimed ones.
func (s *Store) reclaimLocked(connectorID int, r *ring) {
	slots := s.live[connectorID]
	for r.TxBegin < r.TxEnd {
		tx, ok := slots[r.TxBegin]
		if !ok || !tx.IsReclaimable() {
			break
		}
		delete(slots, r.TxBegin)
		r.TxBegin++
	}
}

// GetTransaction resolves a (connectorId, txNr) weak handle.
func (s *Store) GetTransaction(connectorID int, txNr uint32) *Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots, ok := s.live[connectorID]
	if !ok {
		return nil
	}
	return slots[txNr]
}

// GetLatestTransaction returns the current or most-recently-created
// transaction for connectorID, or nil if none exists.
func (s *Store) GetLatestTransaction(connectorID int) *Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rings[connectorID]
	if !ok || r.TxEnd == r.TxBegin {
		return nil
	}
	return s.live[connectorID][r.TxEnd-1]
}

// Remove reclaims a slot. Only permitted once the record is completed
// or aborted, per spec.md §4.D.
func (s *Store) Remove(ctx context.Context, connectorID int, txNr uint32) bool {
	s.mu.Lock()
	slots, ok := s.live[connectorID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	tx, ok := slots[txNr]
	if !ok || !tx.IsReclaimable() {
		s.mu.Unlock()
		return false
	}
	delete(slots, txNr)
	r := s.ringFor(connectorID)
	if txNr == r.TxBegin {
		r.TxBegin++
		s.reclaimLocked(connectorID, r)
	}
	s.mu.Unlock()

	_ = s.fs.Remove(ctx, txKey(connectorID, txNr))
	return true
}

// Commit serialises tx and atomically replaces its blob plus the
// connector's ring pointer. Failing to commit leaves the record only
// in memory: Commit returns the error to its caller and the in-memory
// record is kept as is, so an uncommitted mutation will be lost on
// crash exactly as if the crash had happened a moment earlier.
func (s *Store) Commit(ctx context.Context, tx *Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("txstore: marshal tx %d/%d: %w", tx.ConnectorID, tx.TxNr, err)
	}
	if err := s.fs.WriteFile(ctx, txKey(tx.ConnectorID, tx.TxNr), data); err != nil {
		return fmt.Errorf("txstore: write tx %d/%d: %w", tx.ConnectorID, tx.TxNr, err)
	}

	s.mu.Lock()
	r := s.ringFor(tx.ConnectorID)
	ringData, merr := json.Marshal(r)
	s.mu.Unlock()
	if merr != nil {
		return merr
	}
	return s.fs.WriteFile(ctx, ringKey(tx.ConnectorID), ringData)
}

// Load reconstructs every connector's ring from storage. Any
// transaction whose StartTransaction timestamp is still MinTime
// despite start.rpc.requested being true is unrecoverable: the
// PendingTag's captured tick belonged to the boot that just ended and
// means nothing on this one, so there is no way to ever learn the real
// start time. Such a record is forced into the aborted state rather
// than resumed — spec.md §4.D's "lose StartTx timestamp" case.
func (s *Store) Load(ctx context.Context, connectorIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, connectorID := range connectorIDs {
		data, err := s.fs.ReadFile(ctx, ringKey(connectorID))
		if storage.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		var r ring
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		s.rings[connectorID] = &r

		slots := make(map[uint32]*Transaction)
		for n := r.TxBegin; n < r.TxEnd; n++ {
			txData, err := s.fs.ReadFile(ctx, txKey(connectorID, n))
			if storage.IsNotExist(err) {
				continue
			}
			if err != nil {
				return err
			}
			var tx Transaction
			if err := json.Unmarshal(txData, &tx); err != nil {
				return err
			}
			forceAbortIfUnrecoverable(&tx)
			slots[n] = &tx
		}
		s.live[connectorID] = slots
	}
	return nil
}

func forceAbortIfUnrecoverable(tx *Transaction) {
	if tx.Start.RPC.Requested && tx.Start.Client.Timestamp.IsMin() {
		tx.Start.RPC.Requested = false
		tx.Start.RPC.Confirmed = false
		tx.Session.Active = false
	}
}
