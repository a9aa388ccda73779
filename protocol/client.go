package protocol

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/loyalty/ptcore/bsgs"
	"github.com/loyalty/ptcore/group"
	"github.com/loyalty/ptcore/hybrid"
	"github.com/loyalty/ptcore/merkle"
	"github.com/loyalty/ptcore/zkp"
)

// Client drives either side of the protocol: the shopper opening a
// transaction, or the barcode owner receiving and settling receipts.
type Client struct {
	g      *group.Group
	scheme Scheme
	uid    int
	kp     hybrid.KeyPair
	dlog   *bsgs.Table // only consulted by the semi-honest settlement path

	mu    sync.Mutex
	state StateSnapshot

	sessions map[[32]byte]*PendingClient

	bal       int64
	receipts  []ClientReceipt
	seenMasks map[[32]byte]bool
}

// NewClient constructs a client for uid with a freshly generated hybrid
// encryption key pair and a BSGS table bounded to maxPoints for
// semi-honest settlement.
func NewClient(g *group.Group, scheme Scheme, uid int, maxPoints uint64) *Client {
	return &Client{
		g:         g,
		scheme:    scheme,
		uid:       uid,
		kp:        hybrid.GenerateKeyPair(g),
		dlog:      bsgs.NewTable(g, maxPoints),
		sessions:  make(map[[32]byte]*PendingClient),
		seenMasks: make(map[[32]byte]bool),
	}
}

// PublicKey returns the encoded public key to register with the server.
func (c *Client) PublicKey() [32]byte {
	return group.PointEncode(c.kp.PK)
}

// UpdateState caches the server's latest published snapshot.
func (c *Client) UpdateState(s StateSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Balance returns the client's locally tracked plaintext running total.
func (c *Client) Balance() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bal
}

// Receipts returns a copy of every settled transaction the client has
// recorded, as either a shopper or a barcode owner.
func (c *Client) Receipts() []ClientReceipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ClientReceipt, len(c.receipts))
	copy(out, c.receipts)
	return out
}

// Hello starts a transaction as the shopper: picks a fresh index and
// randomness, commits to both, and records the pending session.
func (c *Client) Hello() (com [32]byte, err error) {
	c.mu.Lock()
	n := c.state.NumUsers
	c.mu.Unlock()
	if n == 0 {
		return com, fmt.Errorf("%w: hello with empty registry", ErrEmptyRegistry)
	}

	ic, err := randIndex(n)
	if err != nil {
		return com, fmt.Errorf("protocol: hello: %w", err)
	}
	r, err := randBytes32()
	if err != nil {
		return com, fmt.Errorf("protocol: hello: %w", err)
	}
	com = recomputeCommitment(ic, r)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.sessions[com]; exists {
		return com, fmt.Errorf("%w: com %x", ErrDuplicateSession, com)
	}
	c.sessions[com] = &PendingClient{IC: ic, R: r}
	return com, nil
}

// Open handles the client side of step 1 before sending (i_c, r): it
// records the server's i_s and returns the opening to transmit.
func (c *Client) Open(com [32]byte, is int) (ic int, r [32]byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending, ok := c.sessions[com]
	if !ok {
		return 0, r, fmt.Errorf("%w: com %x", ErrUnknownSession, com)
	}
	uidBarcode := mod(pending.IC+is, c.state.NumUsers)
	pending.UIDBarcode = uidBarcode
	return pending.IC, pending.R, nil
}

// ReceiveBarcodeGen validates the server's step-1 response: the Merkle
// inclusion proof for the anonymously selected barcode owner.
func (c *Client) ReceiveBarcodeGen(com [32]byte, uidBarcode int, barcode uint64, pkBarcode [32]byte, base [32]byte, proof merkle.Proof) error {
	c.mu.Lock()
	pending, ok := c.sessions[com]
	root := c.state.Root
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: com %x", ErrUnknownSession, com)
	}
	if pending.UIDBarcode != uidBarcode {
		return fmt.Errorf("%w: server-reported uid_b disagrees with locally computed value", ErrInvalidCommit)
	}
	if err := verifyMerkleLeaf(root, uint32(uidBarcode), barcode, pkBarcode, proof); err != nil {
		return err
	}

	c.mu.Lock()
	pending.Base = base
	c.mu.Unlock()
	return nil
}

// Tx builds the shopper's step-2 message: a fresh mask, the zk_tx proof,
// the hybrid ciphertext addressed to the barcode owner, and the two
// balance deltas the server will fold in without ever learning x.
func (c *Client) Tx(com [32]byte, x int64, ownPK, barcodePK [32]byte) (TxMessage, error) {
	c.mu.Lock()
	pending, ok := c.sessions[com]
	c.mu.Unlock()
	if !ok {
		return TxMessage{}, fmt.Errorf("%w: com %x", ErrUnknownSession, com)
	}

	mBits, err := randBytes32()
	if err != nil {
		return TxMessage{}, fmt.Errorf("protocol: tx: %w", err)
	}
	m, err := c.g.ScalarDecode(mBits)
	if err != nil {
		return TxMessage{}, fmt.Errorf("protocol: tx: decoding mask: %w", err)
	}

	gBase := c.scheme.TxBase(c.g, pending.Base)
	xScalar := c.g.ScalarFromInt(x)
	hm := c.g.Mul(m, c.g.H())
	gmx := c.g.Mul(c.g.MulScalar(m, xScalar), gBase)

	payload := c.scheme.EncodePayload(mBits, x, pending.Base)

	ownPKPoint, err := c.g.PointDecode(ownPK)
	if err != nil {
		return TxMessage{}, fmt.Errorf("protocol: tx: own pk: %w", err)
	}
	barcodePKPoint, err := c.g.PointDecode(barcodePK)
	if err != nil {
		return TxMessage{}, fmt.Errorf("protocol: tx: barcode pk: %w", err)
	}

	ct, err := hybrid.Encrypt(c.g, barcodePKPoint, payload)
	if err != nil {
		return TxMessage{}, fmt.Errorf("protocol: tx: encrypt: %w", err)
	}

	proof := zkp.ProveTx(c.g, gBase, hm, gmx, m, xScalar)

	deltaShopper := c.scheme.BuildDelta(c.g, xScalar, gmx, ownPKPoint)
	deltaOwner := c.scheme.BuildDelta(c.g, xScalar, gmx, barcodePKPoint)

	c.mu.Lock()
	pending.M = m
	pending.Hm = hm
	pending.X = x
	c.mu.Unlock()

	return TxMessage{
		Ciphertext: HybridCiphertext{
			C0: ct.C0, C1: ct.C1, Nonce: [12]byte(ct.Nonce), Payload: ct.Payload,
		},
		Proof:        proof,
		Hm:           hm,
		Gmx:          gmx,
		DeltaShopper: deltaShopper,
		DeltaOwner:   deltaOwner,
	}, nil
}

// Coda handles step 3: the server's signature over the transaction is
// checked and recorded, then the session is cleared.
func (c *Client) Coda(com [32]byte, serverVK [32]byte, sig [64]byte) (ClientReceipt, error) {
	c.mu.Lock()
	pending, ok := c.sessions[com]
	c.mu.Unlock()
	if !ok {
		return ClientReceipt{}, fmt.Errorf("%w: com %x", ErrUnknownSession, com)
	}

	material := c.scheme.SignMaterial(pending.Hm, pending.Base)
	if !ed25519.Verify(serverVK[:], material, sig[:]) {
		return ClientReceipt{}, fmt.Errorf("%w: coda signature", ErrInvalidSignature)
	}

	receipt := ClientReceipt{
		X: pending.X, M: pending.M, Hm: pending.Hm, Base: pending.Base,
		GBase: c.scheme.TxBase(c.g, pending.Base), Sig: sig,
	}

	c.mu.Lock()
	c.receipts = append(c.receipts, receipt)
	c.bal += pending.X
	delete(c.sessions, com)
	c.mu.Unlock()

	return receipt, nil
}

// ProcessReceipts handles the barcode owner's side: decrypt, dedupe, and
// verify each delivered receipt, recording it with a flipped sign.
func (c *Client) ProcessReceipts(serverVK [32]byte, delivered []DeliveredReceipt) ([]ClientReceipt, error) {
	out := make([]ClientReceipt, 0, len(delivered))
	for _, d := range delivered {
		payload, err := hybrid.Decrypt(c.g, c.kp.SK, hybrid.Ciphertext{
			C0: d.Ciphertext.C0, C1: d.Ciphertext.C1, Nonce: d.Ciphertext.Nonce, Payload: d.Ciphertext.Payload,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
		}

		mBits, x, base, err := c.scheme.DecodePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: process_receipts: %w", err)
		}

		c.mu.Lock()
		seen := c.seenMasks[mBits]
		c.mu.Unlock()
		if seen {
			return nil, fmt.Errorf("%w: mask %x", ErrReplayedMask, mBits)
		}

		m, err := c.g.ScalarDecode(mBits)
		if err != nil {
			return nil, fmt.Errorf("protocol: process_receipts: decoding mask: %w", err)
		}
		gBase := c.scheme.TxBase(c.g, base)

		material := c.scheme.SignMaterial(d.Hm, d.Base)
		if !ed25519.Verify(serverVK[:], material, d.Sig[:]) {
			return nil, fmt.Errorf("%w: receipt signature", ErrInvalidSignature)
		}

		switch c.scheme.(type) {
		case Malicious:
			xScalar := c.g.ScalarFromInt(x)
			expectedHm := c.g.Mul(m, c.g.H())
			expectedGmx := c.g.Mul(c.g.MulScalar(m, xScalar), gBase)
			if !group.PointEqual(expectedHm, d.Hm) || !group.PointEqual(expectedGmx, d.Gmx) {
				return nil, fmt.Errorf("%w: algebraic receipt check", ErrInvalidProof)
			}
		default:
			if err := zkp.VerifyTx(c.g, gBase, d.Hm, d.Gmx, d.Proof); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
			}
		}

		c.mu.Lock()
		c.seenMasks[mBits] = true
		receipt := ClientReceipt{X: -x, M: m, Hm: d.Hm, Base: base, GBase: gBase, Sig: d.Sig}
		c.receipts = append(c.receipts, receipt)
		c.bal -= x
		c.mu.Unlock()

		out = append(out, receipt)
	}
	return out, nil
}

// SettleMalicious assembles a zk_settle proof over every receipt the
// client has recorded and returns the material the server needs.
func (c *Client) SettleMalicious() (xClaim group.Scalar, items []TxWitnessPublic, proof zkp.SettleProof) {
	c.mu.Lock()
	defer c.mu.Unlock()

	witnesses := make([]zkp.TxWitness, len(c.receipts))
	items = make([]TxWitnessPublic, len(c.receipts))
	total := c.g.ZeroScalar()

	for i, r := range c.receipts {
		xs := c.g.ScalarFromInt(r.X)
		total = c.g.AddScalar(total, xs)
		witnesses[i] = zkp.TxWitness{M: r.M, X: xs, GBase: r.GBase, Hm: r.Hm}
		items[i] = TxWitnessPublic{Hm: r.Hm, Base: r.Base, Sig: r.Sig}
	}

	bal := c.g.Identity()
	for _, w := range witnesses {
		bal = c.g.Add(bal, c.g.Mul(c.g.MulScalar(w.M, w.X), w.GBase))
	}

	proof = zkp.ProveSettle(c.g, total, bal, witnesses)
	return total, items, proof
}

// SettleSemiHonest handles the semi-honest-only settlement path: the
// server reveals its encrypted balance for this client's uid, the client
// decrypts via ElGamal and BSGS to recover the claimed balance, and proves
// correct decryption with a Chaum-Pedersen proof the server can check
// without ever learning the client's secret key.
func (c *Client) SettleSemiHonest(ct CipherBalance) (x int64, proof zkp.DecryptionProof, err error) {
	mg := c.g.Sub(ct.C1, c.g.Mul(c.kp.SK, ct.C0))
	x, err = c.dlog.Dlog(mg)
	if err != nil {
		return 0, zkp.DecryptionProof{}, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}

	pt := c.g.ScalarFromInt(x)
	proof = zkp.ProveDecryption(c.g, c.kp.SK, c.kp.PK, ct.C0, ct.C1, pt)
	return x, proof, nil
}
