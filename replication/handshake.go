package replication

import (
	"crypto/rand"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/veraison/go-cose"
)

// Handshake is the session-opening record a destination and source agree
// on before any chunk flows: a session id for correlating logs/errors
// across the exchange, the protocol version, and the root hash the
// destination is trying to reach (spec.md §4.11's sync setup step).
//
// Grounded on the teacher's massifs.Checkpoint (massifs/checkpoint.go),
// which CBOR-encodes its root-hash-bearing payload the same way before
// optionally COSE-signing it; this package skips the teacher's CWT-claims
// and ldclabs/cose wrapper layer (see DESIGN.md) and talks to
// veraison/go-cose directly, the way massifs/rootsigner.go's Sign1
// ultimately does under its own wrapper.
type Handshake struct {
	SessionID       uuid.UUID `cbor:"1,keyasint"`
	ProtocolVersion uint32    `cbor:"2,keyasint"`
	RootHash        [32]byte  `cbor:"3,keyasint"`
}

// NewHandshake mints a handshake for rootHash with a fresh session id and
// this package's ProtocolVersion.
func NewHandshake(rootHash [32]byte) Handshake {
	return Handshake{SessionID: uuid.New(), ProtocolVersion: ProtocolVersion, RootHash: rootHash}
}

// Marshal CBOR-encodes h.
func (h Handshake) Marshal() ([]byte, error) {
	return cbor.Marshal(h)
}

// UnmarshalHandshake decodes a CBOR-encoded handshake, failing with
// ErrCorruptedData on malformed input.
func UnmarshalHandshake(b []byte) (Handshake, error) {
	var h Handshake
	if err := cbor.Unmarshal(b, &h); err != nil {
		return Handshake{}, ErrCorruptedData
	}
	return h, nil
}

// Sign wraps h's CBOR encoding in a COSE Sign1 envelope, the way
// massifs.RootSigner.Sign1 seals a massif's root hash before it crosses a
// trust boundary. A session with no signer configured skips this step
// entirely (unsigned handshake, matching the teacher's own
// ErrSealGetterNotProvided escape hatch for unsigned deployments).
func (h Handshake) Sign(signer cose.Signer) ([]byte, error) {
	payload, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: signer.Algorithm(),
			},
		},
		Payload: payload,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

// VerifySigned verifies a COSE Sign1-wrapped handshake against verifier
// and returns the decoded Handshake.
func VerifySigned(data []byte, verifier cose.Verifier) (Handshake, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(data); err != nil {
		return Handshake{}, ErrCorruptedData
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return Handshake{}, err
	}
	return UnmarshalHandshake(msg.Payload)
}
