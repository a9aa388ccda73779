package protocol

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/loyalty/ptcore/merkle"
)

// userRecord is one registered user's data, independent of the active
// Scheme's balance representation.
type userRecord struct {
	Barcode uint64
	PK      [32]byte
	Balance Balance
}

// Registry is the shared user table and its Merkle ledger. Registrations
// take the exclusive writer lock; transaction handlers that only read the
// tree or a single user's record take the shared reader lock.
type Registry struct {
	mu      sync.RWMutex
	tree    *merkle.Tree
	users   []userRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tree: merkle.New()}
}

// RegisterUser inserts a new user and returns its uid and inclusion proof
// in one call, so a freshly registered client does not need a second
// round trip to learn its own proof.
func (r *Registry) RegisterUser(barcode uint64, pk [32]byte, initial Balance) (int, merkle.Proof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid := len(r.users)
	r.users = append(r.users, userRecord{Barcode: barcode, PK: pk, Balance: initial})

	idx := r.tree.Insert(merkle.Entry{UID: uint32(uid), Barcode: barcode, PK: pk})
	proof, err := r.tree.Proof(idx)
	if err != nil {
		return 0, merkle.Proof{}, fmt.Errorf("protocol: registry proof: %w", err)
	}
	return uid, proof, nil
}

// NumUsers reports the number of registered users.
func (r *Registry) NumUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Root returns the current Merkle root.
func (r *Registry) Root() [32]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Root()
}

// Lookup returns a copy of uid's registered barcode and public key plus a
// fresh inclusion proof against the current root.
func (r *Registry) Lookup(uid int) (barcode uint64, pk [32]byte, proof merkle.Proof, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if uid < 0 || uid >= len(r.users) {
		return 0, [32]byte{}, merkle.Proof{}, fmt.Errorf("protocol: uid %d not registered", uid)
	}
	u := r.users[uid]
	proof, err = r.tree.Proof(uid)
	if err != nil {
		return 0, [32]byte{}, merkle.Proof{}, fmt.Errorf("protocol: lookup proof: %w", err)
	}
	return u.Barcode, u.PK, proof, nil
}

// PK returns uid's registered public key.
func (r *Registry) PK(uid int) ([32]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if uid < 0 || uid >= len(r.users) {
		return [32]byte{}, fmt.Errorf("protocol: uid %d not registered", uid)
	}
	return r.users[uid].PK, nil
}

// Balance returns a copy of uid's current balance.
func (r *Registry) Balance(uid int) (Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if uid < 0 || uid >= len(r.users) {
		return nil, fmt.Errorf("protocol: uid %d not registered", uid)
	}
	return r.users[uid].Balance, nil
}

// UpdateBalance replaces uid's stored balance.
func (r *Registry) UpdateBalance(uid int, bal Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if uid < 0 || uid >= len(r.users) {
		return fmt.Errorf("protocol: uid %d not registered", uid)
	}
	r.users[uid].Balance = bal
	return nil
}

// verifyMerkleLeaf recomputes the leaf hash for (uid, barcode, pk) and
// checks it both matches the proof's claimed leaf and chains to root. It
// is how a client validates a server-supplied inclusion proof it did not
// build itself.
func verifyMerkleLeaf(root [32]byte, uid uint32, barcode uint64, pk [32]byte, proof merkle.Proof) error {
	var pre [merkle.EntryLen]byte
	binary.LittleEndian.PutUint32(pre[0:4], uid)
	binary.LittleEndian.PutUint64(pre[4:12], barcode)
	copy(pre[12:44], pk[:])
	leaf := sha256.Sum256(pre[:])

	if !bytes.Equal(leaf[:], proof.Leaf[:]) {
		return ErrMerkleRejected
	}
	if err := merkle.Verify(root, proof); err != nil {
		return ErrMerkleRejected
	}
	return nil
}
