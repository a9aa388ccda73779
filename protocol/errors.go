package protocol

import "errors"

// Sentinel errors for every error kind named by the protocol. Each is
// wrapped with context at its call site via fmt.Errorf("%w: ...").
var (
	ErrInvalidCommit     = errors.New("protocol: commitment does not reopen to (i_c, r)")
	ErrInvalidProof      = errors.New("protocol: zero-knowledge proof rejected")
	ErrInvalidSignature  = errors.New("protocol: signature does not verify")
	ErrInvalidCiphertext = errors.New("protocol: ciphertext decode or decrypt failed")
	ErrReplayedMask      = errors.New("protocol: mask already accepted")
	ErrMerkleRejected    = errors.New("protocol: merkle inclusion proof rejected")
	ErrOutOfRange        = errors.New("protocol: value out of the discrete-log table's range")
	ErrUnknownSession    = errors.New("protocol: unknown session commitment")
	ErrEmptyRegistry     = errors.New("protocol: registry has no users")
	ErrDuplicateSession  = errors.New("protocol: commitment collides with an existing session")
	ErrOutOfOrder        = errors.New("protocol: message received out of order for this session")
)
