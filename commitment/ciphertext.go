package commitment

// MemoSize is the compile-time memo-field size baked into the ciphertext
// payload layout (spec.md §4.5/§6.2), matching the Orchard note plaintext's
// fixed memo field.
const MemoSize = 512

// notePlaintextOverhead is the non-memo portion of an encrypted note
// plaintext (diversifier, value, rseed and padding), following the
// Orchard note plaintext layout the spec's payload format is drawn from.
const notePlaintextOverhead = 52

// EncCiphertextSize is the size of the enc_ct field in the wire layout
// below.
const EncCiphertextSize = MemoSize + notePlaintextOverhead + 16 // +16 bytes AEAD tag

// OutCiphertextSize is the fixed size of out_ct (spec.md §6.2).
const OutCiphertextSize = 80

// EpkSize is the fixed size of the ephemeral public key prefix.
const EpkSize = 32

// PayloadSize is the total size of a serialized ciphertext payload.
const PayloadSize = EpkSize + EncCiphertextSize + OutCiphertextSize

// Ciphertext is the decoded form of a commitment-tree ciphertext payload:
// epk(32) ‖ enc_ct ‖ out_ct(80) (spec.md §6.2).
type Ciphertext struct {
	Epk   [EpkSize]byte
	EncCt []byte // always EncCiphertextSize bytes
	OutCt [OutCiphertextSize]byte
}

// SerializeCiphertext encodes c per spec.md §6.2's fixed layout.
func SerializeCiphertext(c Ciphertext) []byte {
	buf := make([]byte, 0, PayloadSize)
	buf = append(buf, c.Epk[:]...)
	buf = append(buf, c.EncCt...)
	buf = append(buf, c.OutCt[:]...)
	return buf
}

// DeserializeCiphertext parses the layout SerializeCiphertext produces.
func DeserializeCiphertext(b []byte) (Ciphertext, error) {
	if len(b) != PayloadSize {
		return Ciphertext{}, ErrCiphertextTooShort
	}
	var c Ciphertext
	copy(c.Epk[:], b[:EpkSize])
	c.EncCt = append([]byte(nil), b[EpkSize:EpkSize+EncCiphertextSize]...)
	copy(c.OutCt[:], b[EpkSize+EncCiphertextSize:])
	return c, nil
}
