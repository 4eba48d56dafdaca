package witness

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	com, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(com.SecretHex) != 64 {
		t.Errorf("secret length = %d hex chars, want 64", len(com.SecretHex))
	}
	if !strings.HasPrefix(com.SecretHex, secretPrefix) {
		t.Errorf("secret %q does not carry the fixed prefix", com.SecretHex)
	}

	if !strings.HasPrefix(com.Witness, "0x") {
		t.Errorf("witness %q is not 0x-prefixed", com.Witness)
	}
	if len(com.Witness) != 42 {
		t.Errorf("witness length = %d, want 42", len(com.Witness))
	}
	if com.Witness != strings.ToLower(com.Witness) {
		t.Errorf("witness %q is not lowercase", com.Witness)
	}
}

func TestGenerateUniqueness(t *testing.T) {
	const draws = 10000
	seen := make(map[string]bool, draws)
	for i := 0; i < draws; i++ {
		com, err := Generate()
		if err != nil {
			t.Fatalf("generate #%d: %v", i, err)
		}
		if seen[com.Witness] {
			t.Fatalf("witness collision after %d draws: %s", i, com.Witness)
		}
		seen[com.Witness] = true
	}
}

func TestSubWitness(t *testing.T) {
	base := "0xabc0000000000000000000000000000000000def"

	if got := SubWitness(base, 0); got != base+"0" {
		t.Errorf("sub 0 = %q", got)
	}
	if got := SubWitness(base, 12); got != base+"12" {
		t.Errorf("sub 12 = %q", got)
	}

	// suffixed identities never collide across indices
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w := SubWitness(base, i)
		if seen[w] {
			t.Fatalf("sub-witness collision at index %d", i)
		}
		seen[w] = true
	}
}

func TestBaseRecoversCommitment(t *testing.T) {
	base := "0xabc0000000000000000000000000000000000def"

	for _, i := range []int{0, 7, 12, 105} {
		if got := Base(SubWitness(base, i)); got != base {
			t.Errorf("Base(sub %d) = %q, want %q", i, got, base)
		}
	}

	// a bare base witness passes through unchanged
	if got := Base(base); got != base {
		t.Errorf("Base(base) = %q", got)
	}
}

func TestDerivationIsDeterministic(t *testing.T) {
	// the same secret always maps to the same witness
	com, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	again, err := FromSecret(com.SecretHex)
	if err != nil {
		t.Fatalf("re-derive: %v", err)
	}
	if again != com.Witness {
		t.Errorf("re-derived witness = %s, want %s", again, com.Witness)
	}
}
