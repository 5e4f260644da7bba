package keys

import (
	"testing"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
)

func TestSignVerifyRoundTrips(t *testing.T) {
	u, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	digest := coinhash.Sum256([]byte("sighash over some transaction"))
	sig := u.Sign(digest[:])

	if !Verify(u.PubKey(), digest, sig) {
		t.Fatal("expected Verify to accept a signature Sign just produced over the same digest")
	}
}

func TestVerifyRejectsWrongDigest(t *testing.T) {
	u, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	digest := coinhash.Sum256([]byte("the real digest"))
	sig := u.Sign(digest[:])

	other := coinhash.Sum256([]byte("a different digest"))
	if Verify(u.PubKey(), other, sig) {
		t.Fatal("expected Verify to reject a signature checked against a different digest")
	}
}
