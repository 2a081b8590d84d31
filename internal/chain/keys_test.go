package chain

import (
	"path/filepath"
	"testing"
)

func TestKeypairRoundTrip(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "vault.key")
	if err := kp.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadKeypair(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Address() != kp.Address() {
		t.Errorf("loaded address %s != %s", loaded.Address(), kp.Address())
	}

	msg := []byte("settle up")
	if err := VerifySignature(kp.Address(), msg, loaded.Sign(msg)); err != nil {
		t.Errorf("loaded key signs differently: %v", err)
	}
}

func TestLoadOrCreateKeypair(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vault.key")

	first, err := LoadOrCreateKeypair(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := LoadOrCreateKeypair(path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Address() != second.Address() {
		t.Error("second load generated a fresh key")
	}
}

func TestAddressChecksum(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := kp.Address()

	if !ValidAddress(addr) {
		t.Fatalf("own address invalid: %s", addr)
	}

	// Flipping a character must break the checksum.
	flipped := []byte(addr)
	if flipped[len(flipped)/2] == 'x' {
		flipped[len(flipped)/2] = 'y'
	} else {
		flipped[len(flipped)/2] = 'x'
	}
	if ValidAddress(string(flipped)) {
		t.Errorf("corrupted address accepted: %s", flipped)
	}

	if ValidAddress("") || ValidAddress("not-base58-0OIl") {
		t.Error("junk address accepted")
	}
}

func TestVerifySignatureRejectsTamper(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("pay addr9 500")
	sig := kp.Sign(msg)

	if err := VerifySignature(kp.Address(), msg, sig); err != nil {
		t.Fatal(err)
	}
	if err := VerifySignature(kp.Address(), []byte("pay addr9 9500"), sig); err == nil {
		t.Error("altered message accepted")
	}

	other, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifySignature(other.Address(), msg, sig); err == nil {
		t.Error("wrong signer accepted")
	}
}

func TestEnvelopeVerify(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	dest, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}

	env, err := NewTransferEnvelope(kp, dest.Address(), 250)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Verify(); err != nil {
		t.Fatal(err)
	}
	if env.TxID() == "" {
		t.Error("empty tx id")
	}

	tampered := *env
	tampered.Value = []byte(`{"from":"` + kp.Address() + `","to":"` + dest.Address() + `","amount":9999}`)
	if err := tampered.Verify(); err == nil {
		t.Error("tampered value accepted")
	}

	if _, err := NewTransferEnvelope(kp, dest.Address(), 0); err == nil {
		t.Error("zero amount accepted")
	}
	if _, err := NewTransferEnvelope(kp, "garbage", 10); err == nil {
		t.Error("bad destination accepted")
	}
}
