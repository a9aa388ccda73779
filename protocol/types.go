// Package protocol implements the transaction state machine: the
// four-message hello/barcode_gen/tx/coda exchange, receipt delivery, and
// settlement, shared between the semi-honest and maliciously-secure
// flavors through the Scheme strategy interface.
package protocol

import (
	"github.com/loyalty/ptcore/group"
	"github.com/loyalty/ptcore/zkp"
)

// Balance is the server-side per-user running total. Its concrete shape
// depends on the active Scheme: PointBalance for the malicious variant,
// CipherBalance for the semi-honest variant.
type Balance interface {
	isBalance()
}

// PointBalance is the malicious variant's accumulator: a single group
// element that folds in Σ sign_i · g_i^{m_i x_i}.
type PointBalance struct {
	P group.Point
}

func (PointBalance) isBalance() {}

// CipherBalance is the semi-honest variant's accumulator: an ElGamal
// ciphertext over the user's own public key, homomorphically updated by
// adding a per-transaction delta encryption of the signed amount.
type CipherBalance struct {
	C0, C1 group.Point
}

func (CipherBalance) isBalance() {}

// StateSnapshot is what share_state publishes to clients.
type StateSnapshot struct {
	NumUsers int
	Root     [32]byte
	ServerVK [32]byte
}

// PendingServer is the server's per-com session record.
type PendingServer struct {
	UIDShopper int
	IS         int
	UIDBarcode int
	HaveBarcode bool
	Base       [32]byte
}

// PendingClient is the shopper client's per-com session record.
type PendingClient struct {
	IC         int
	R          [32]byte
	UIDBarcode int
	M          group.Scalar
	Hm         group.Point
	X          int64
	Base       [32]byte
}

// StoredReceipt is one entry queued at the server for a barcode owner.
type StoredReceipt struct {
	Ciphertext HybridCiphertext
	Proof      zkp.TxProof
	GBase      group.Point
	Base       [32]byte
	Hm         group.Point
	Gmx        group.Point
	Sig        [64]byte
}

// ClientReceipt is what either side of a settled transaction keeps locally.
type ClientReceipt struct {
	X     int64
	M     group.Scalar
	Hm    group.Point
	Base  [32]byte
	GBase group.Point
	Sig   [64]byte
}

// HybridCiphertext mirrors hybrid.Ciphertext but lives in this package so
// Scheme implementations can reason about payload framing without an
// import cycle back through protocol-specific helpers.
type HybridCiphertext struct {
	C0      group.Point
	C1      group.Point
	Nonce   [12]byte
	Payload []byte
}

// TxMessage is everything the shopper sends at step 2 (transact).
type TxMessage struct {
	Ciphertext   HybridCiphertext
	Proof        zkp.TxProof
	Hm, Gmx      group.Point
	DeltaShopper Balance
	DeltaOwner   Balance
}
