package coinhash

import "unicode/utf8"

// LossyUTF8 re-encodes b the way the source's `String::from_utf8_lossy`
// does: well-formed runs pass through unchanged, and each ill-formed byte is
// replaced with the UTF-8 replacement character (U+FFFD). The script VM's
// SHA256 opcode and the pubkey-hash helper in internal/keys both hash this
// lossy re-encoding rather than the raw bytes, matching the original's
// behavior of treating arbitrary byte strings (e.g. a raw SEC1 public key)
// as text before hashing.
func LossyUTF8(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, "�"...)
			i++
			continue
		}
		out = append(out, b[i:i+size]...)
		i += size
	}
	return out
}

// SumLossyUTF8 hashes the lossy-UTF8 re-encoding of b.
func SumLossyUTF8(b []byte) Hash {
	return Sum256(LossyUTF8(b))
}
