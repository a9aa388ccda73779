package protocol

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/loyalty/ptcore/bsgs"
	"github.com/loyalty/ptcore/group"
	"github.com/loyalty/ptcore/merkle"
	"github.com/loyalty/ptcore/zkp"
)

// Server drives the server side of the protocol. It is variant-agnostic:
// everything specific to the semi-honest or malicious flavor is delegated
// to its Scheme.
type Server struct {
	g      *group.Group
	scheme Scheme
	vk     ed25519.PublicKey
	sk     ed25519.PrivateKey

	registry *Registry
	receipts *ReceiptBox

	dlog *bsgs.Table // not read by any Server method; semi-honest decryption runs in Client.SettleSemiHonest

	mu       sync.Mutex
	sessions map[[32]byte]*PendingServer
}

// NewServer constructs a server for the given scheme. maxPoints bounds the
// server's BSGS table, which no Server method consults.
func NewServer(g *group.Group, scheme Scheme, maxPoints uint64) (*Server, error) {
	vk, sk, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: generating server signing key: %w", err)
	}
	return &Server{
		g:        g,
		scheme:   scheme,
		vk:       vk,
		sk:       sk,
		registry: NewRegistry(),
		receipts: NewReceiptBox(),
		dlog:     bsgs.NewTable(g, maxPoints),
		sessions: make(map[[32]byte]*PendingServer),
	}, nil
}

// RegisterUser adds a new user and returns its uid and inclusion proof.
func (s *Server) RegisterUser(barcode uint64, pk [32]byte) (int, merkle.Proof, error) {
	pkPoint, err := s.g.PointDecode(pk)
	if err != nil {
		return 0, merkle.Proof{}, fmt.Errorf("protocol: register_user: %w", err)
	}
	initial := s.scheme.NewBalance(s.g, pkPoint)
	return s.registry.RegisterUser(barcode, pk, initial)
}

// ShareState publishes the server's current view for clients to cache.
func (s *Server) ShareState() StateSnapshot {
	var vk [32]byte
	copy(vk[:], s.vk)
	return StateSnapshot{
		NumUsers: s.registry.NumUsers(),
		Root:     s.registry.Root(),
		ServerVK: vk,
	}
}

// Hello handles step 0: the client's commitment arrives, the server picks
// its own random index and records the session.
func (s *Server) Hello(com [32]byte, uidShopper int) (int, error) {
	n := s.registry.NumUsers()
	if n == 0 {
		return 0, fmt.Errorf("%w: hello with empty registry", ErrEmptyRegistry)
	}

	is, err := randIndex(n)
	if err != nil {
		return 0, fmt.Errorf("protocol: hello: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[com]; exists {
		return 0, fmt.Errorf("%w: com %x", ErrDuplicateSession, com)
	}
	s.sessions[com] = &PendingServer{UIDShopper: uidShopper, IS: is}
	return is, nil
}

// BarcodeGen handles step 1: the client opens its commitment and the
// server looks up the (anonymously selected) barcode owner.
func (s *Server) BarcodeGen(com [32]byte, ic int, r [32]byte) (uidBarcode int, barcode uint64, pkBarcode [32]byte, base [32]byte, proof merkle.Proof, err error) {
	s.mu.Lock()
	pending, ok := s.sessions[com]
	s.mu.Unlock()
	if !ok {
		return 0, 0, pkBarcode, base, merkle.Proof{}, fmt.Errorf("%w: com %x", ErrUnknownSession, com)
	}
	if pending.HaveBarcode {
		return 0, 0, pkBarcode, base, merkle.Proof{}, fmt.Errorf("%w: barcode_gen already completed for com %x", ErrOutOfOrder, com)
	}

	if !bytes.Equal(recomputeCommitment(ic, r)[:], com[:]) {
		return 0, 0, pkBarcode, base, merkle.Proof{}, fmt.Errorf("%w: com %x", ErrInvalidCommit, com)
	}

	n := s.registry.NumUsers()
	uidBarcode = mod(ic+pending.IS, n)

	barcode, pkBarcode, proof, err = s.registry.Lookup(uidBarcode)
	if err != nil {
		return 0, 0, pkBarcode, base, merkle.Proof{}, fmt.Errorf("protocol: barcode_gen lookup: %w", err)
	}

	base = s.scheme.SampleBase(s.g)

	s.mu.Lock()
	pending.UIDBarcode = uidBarcode
	pending.HaveBarcode = true
	pending.Base = base
	s.mu.Unlock()

	return uidBarcode, barcode, pkBarcode, base, proof, nil
}

// Tx handles step 2: the shopper's transaction proof and hybrid
// ciphertext arrive; balances update and a receipt is queued.
func (s *Server) Tx(com [32]byte, msg TxMessage) (sig [64]byte, err error) {
	s.mu.Lock()
	pending, ok := s.sessions[com]
	s.mu.Unlock()
	if !ok {
		return sig, fmt.Errorf("%w: com %x", ErrUnknownSession, com)
	}
	if !pending.HaveBarcode {
		return sig, fmt.Errorf("%w: tx before barcode_gen for com %x", ErrOutOfOrder, com)
	}

	gBase := s.scheme.TxBase(s.g, pending.Base)
	if err := zkp.VerifyTx(s.g, gBase, msg.Hm, msg.Gmx, msg.Proof); err != nil {
		return sig, fmt.Errorf("%w: tx proof for com %x", ErrInvalidProof, com)
	}

	if err := s.applyBalanceDelta(pending.UIDShopper, msg.DeltaShopper, +1); err != nil {
		return sig, fmt.Errorf("protocol: tx shopper balance update: %w", err)
	}
	if err := s.applyBalanceDelta(pending.UIDBarcode, msg.DeltaOwner, -1); err != nil {
		return sig, fmt.Errorf("protocol: tx barcode owner balance update: %w", err)
	}

	s.receipts.Append(pending.UIDBarcode, StoredReceipt{
		Ciphertext: msg.Ciphertext,
		Proof:      msg.Proof,
		GBase:      gBase,
		Base:       pending.Base,
		Hm:         msg.Hm,
		Gmx:        msg.Gmx,
	})

	material := s.scheme.SignMaterial(msg.Hm, pending.Base)
	sig = signInto(s.sk, material)

	s.mu.Lock()
	delete(s.sessions, com)
	s.mu.Unlock()

	return sig, nil
}

func (s *Server) applyBalanceDelta(uid int, delta Balance, sign int64) error {
	cur, err := s.registry.Balance(uid)
	if err != nil {
		return err
	}
	next, err := s.scheme.ApplyDelta(s.g, cur, delta, sign)
	if err != nil {
		return err
	}
	return s.registry.UpdateBalance(uid, next)
}

// DeliveredReceipt is one receipt handed to the barcode owner, re-signed
// with the same material the initial confirmation carried.
type DeliveredReceipt struct {
	Ciphertext HybridCiphertext
	Proof      zkp.TxProof
	GBase      group.Point
	Base       [32]byte
	Hm         group.Point
	Gmx        group.Point
	Sig        [64]byte
}

// SendReceipts drains uid's receipt queue, re-signing every entry.
func (s *Server) SendReceipts(uid int) []DeliveredReceipt {
	stored := s.receipts.Drain(uid)
	out := make([]DeliveredReceipt, len(stored))
	for i, r := range stored {
		material := s.scheme.SignMaterial(r.Hm, r.Base)
		out[i] = DeliveredReceipt{
			Ciphertext: r.Ciphertext,
			Proof:      r.Proof,
			GBase:      r.GBase,
			Base:       r.Base,
			Hm:         r.Hm,
			Gmx:        r.Gmx,
			Sig:        signInto(s.sk, material),
		}
	}
	return out
}

// SettleMalicious verifies a batched settlement proof for the malicious
// variant against uid's currently stored balance.
func (s *Server) SettleMalicious(uid int, xClaim group.Scalar, items []TxWitnessPublic, proof zkp.SettleProof) error {
	bal, err := s.registry.Balance(uid)
	if err != nil {
		return err
	}
	pb, ok := bal.(PointBalance)
	if !ok {
		return fmt.Errorf("protocol: settle_balance: uid %d has no malicious-variant balance", uid)
	}

	for _, it := range items {
		material := s.scheme.SignMaterial(it.Hm, it.Base)
		if !ed25519.Verify(s.vk, material, it.Sig[:]) {
			return fmt.Errorf("%w: settlement receipt signature", ErrInvalidSignature)
		}
	}

	witnesses := make([]zkp.TxWitness, len(items))
	for i, it := range items {
		witnesses[i] = zkp.TxWitness{GBase: s.scheme.TxBase(s.g, it.Base), Hm: it.Hm}
	}

	if err := zkp.VerifySettle(s.g, xClaim, pb.P, witnesses, proof); err != nil {
		return fmt.Errorf("%w: settle_balance for uid %d", ErrInvalidProof, uid)
	}
	return nil
}

// RevealBalance returns uid's raw semi-honest balance ciphertext so the
// client can decrypt and prove correct decryption off-band.
func (s *Server) RevealBalance(uid int) (CipherBalance, error) {
	bal, err := s.registry.Balance(uid)
	if err != nil {
		return CipherBalance{}, err
	}
	cb, ok := bal.(CipherBalance)
	if !ok {
		return CipherBalance{}, fmt.Errorf("protocol: reveal_balance: uid %d has no semi-honest balance", uid)
	}
	return cb, nil
}

// SettleSemiHonestFinalize verifies the client's Chaum-Pedersen proof of
// correct decryption against uid's registered public key and uid's own
// balance ciphertext, re-read from the registry rather than trusted from
// the proof, so a client cannot substitute a ciphertext of its choosing.
func (s *Server) SettleSemiHonestFinalize(uid int, xClaim int64, proof zkp.DecryptionProof) error {
	pk, err := s.registry.PK(uid)
	if err != nil {
		return err
	}
	h, err := s.g.PointDecode(pk)
	if err != nil {
		return fmt.Errorf("protocol: settle_balance_finalize: %w", err)
	}

	bal, err := s.registry.Balance(uid)
	if err != nil {
		return err
	}
	cb, ok := bal.(CipherBalance)
	if !ok {
		return fmt.Errorf("protocol: settle_balance_finalize: uid %d has no semi-honest balance", uid)
	}
	if group.PointEncode(proof.C0) != group.PointEncode(cb.C0) || group.PointEncode(proof.C1) != group.PointEncode(cb.C1) {
		return fmt.Errorf("%w: settle_balance_finalize ciphertext mismatch for uid %d", ErrInvalidProof, uid)
	}

	pt := s.g.ScalarFromInt(xClaim)
	if err := zkp.VerifyDecryption(s.g, h, pt, proof); err != nil {
		return fmt.Errorf("%w: settle_balance_finalize for uid %d", ErrInvalidProof, uid)
	}
	return nil
}

// TxWitnessPublic bundles a settlement item's public fields: the receipt's
// h^{m_i}, base_i, and server signature over SignMaterial(h^{m_i}, base_i).
type TxWitnessPublic struct {
	Hm   group.Point
	Base [32]byte
	Sig  [64]byte
}

func signInto(sk ed25519.PrivateKey, material []byte) [64]byte {
	var out [64]byte
	copy(out[:], ed25519.Sign(sk, material))
	return out
}

func recomputeCommitment(ic int, r [32]byte) [32]byte {
	var icLE [4]byte
	binary.LittleEndian.PutUint32(icLE[:], uint32(ic))
	h := sha256.New()
	h.Write(icLE[:])
	h.Write(r[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
