package chain

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/decred/base58"

	"github.com/easwar16/Golden-Flop-sub000/internal/fileutil"
)

// addressVersion prefixes every address so a payment address cannot be
// confused with base58 text from another system.
var addressVersion = [2]byte{0x0f, 0x21}

// Keypair is an ed25519 signing key with its derived address.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// GenerateKeypair creates a fresh random keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// Address is the checksummed base58 encoding of the public key.
func (k *Keypair) Address() string {
	return base58.CheckEncode(k.pub, addressVersion)
}

// Public returns the raw public key.
func (k *Keypair) Public() ed25519.PublicKey {
	return k.pub
}

// Sign signs msg with the private key.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// DecodeAddress recovers the public key from a checksummed address.
func DecodeAddress(address string) (ed25519.PublicKey, error) {
	raw, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", address, err)
	}
	if version != addressVersion {
		return nil, fmt.Errorf("address %q has version %x, want %x", address, version, addressVersion)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("address %q decodes to %d bytes, want %d", address, len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// ValidAddress reports whether address parses and checksums correctly.
func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// VerifySignature checks an ed25519 signature made by the key behind
// address over msg.
func VerifySignature(address string, msg, sig []byte) error {
	pub, err := DecodeAddress(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: sig length %d", ErrBadSignature, len(sig))
	}
	if !ed25519.Verify(pub, msg, sig) {
		return ErrBadSignature
	}
	return nil
}

// keyFile is the on-disk keypair format.
type keyFile struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// Save writes the keypair to path, readable only by the owner. The write is
// atomic so a crash never leaves a truncated keyfile.
func (k *Keypair) Save(path string) error {
	data, err := json.MarshalIndent(keyFile{
		Address:    k.Address(),
		PrivateKey: hex.EncodeToString(k.priv.Seed()),
	}, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0o600)
}

// LoadKeypair reads a keypair saved with Save.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyfile %s: %w", path, err)
	}
	seed, err := hex.DecodeString(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse keyfile %s: %w", path, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keyfile %s: seed is %d bytes, want %d", path, len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	kp := &Keypair{pub: priv.Public().(ed25519.PublicKey), priv: priv}
	if kf.Address != "" && kf.Address != kp.Address() {
		return nil, fmt.Errorf("keyfile %s: address %s does not match key", path, kf.Address)
	}
	return kp, nil
}

// LoadOrCreateKeypair loads the keypair at path, generating and saving a new
// one if the file does not exist.
func LoadOrCreateKeypair(path string) (*Keypair, error) {
	kp, err := LoadKeypair(path)
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	kp, err = GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := kp.Save(path); err != nil {
		return nil, err
	}
	return kp, nil
}

// newNonce returns 16 random bytes hex encoded.
func newNonce() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("chain: entropy unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
