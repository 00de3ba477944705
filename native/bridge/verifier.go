package bridge

import (
	"errors"
	"math/big"

	"lendbridge/crypto"
)

// ErrInvalidProof is returned when the attestation payload does not verify.
var ErrInvalidProof = errors.New("bridge engine: invalid custody proof")

// ProofVerifier attests that the claimed amount is custodied on the counterpart
// chain for the account. Implementations are expected to consult an external
// attestation service; the engine only cares about accept/reject.
type ProofVerifier interface {
	Verify(account crypto.Address, isLender bool, amount *big.Int, proof []byte) error
}

// StubVerifier accepts any non-empty proof payload. It stands in for the
// cross-chain attestation service until a real verifier is wired.
type StubVerifier struct{}

// Verify implements the ProofVerifier interface.
func (StubVerifier) Verify(_ crypto.Address, _ bool, _ *big.Int, proof []byte) error {
	if len(proof) == 0 {
		return ErrInvalidProof
	}
	return nil
}
