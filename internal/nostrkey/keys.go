// Package nostrkey handles profile private-key parsing and bech32
// npub/nsec codec, grounded on the real Go nostr ecosystem libraries
// named in SPEC_FULL.md's domain stack: github.com/decred/dcrec/secp256k1/v4
// for the curve and github.com/btcsuite/btcd/btcutil/bech32 for the
// npub/nsec encoding (NIP-19). Neither appears in the retrieval pack;
// both are named per the out-of-pack-dependency rule in the project brief.
package nostrkey

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrec/secp256k1/v4"
)

const (
	hrpPrivateKey = "nsec"
	hrpPublicKey  = "npub"
)

// ParsePrivateKey accepts either a 64-character hex-encoded private key or
// a bech32 `nsec1...` key and returns the parsed secp256k1 key.
func ParsePrivateKey(raw string) (*secp256k1.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	var keyBytes []byte
	switch {
	case strings.HasPrefix(raw, hrpPrivateKey+"1"):
		decoded, err := decodeBech32(raw, hrpPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("decoding nsec key: %w", err)
		}
		keyBytes = decoded
	default:
		decoded, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("private key is neither valid hex nor a bech32 nsec: %w", err)
		}
		keyBytes = decoded
	}

	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("private key must decode to 32 bytes, got %d", len(keyBytes))
	}

	priv := secp256k1.PrivKeyFromBytes(keyBytes)
	return priv, nil
}

// PublicKeyHex returns the lowercase hex-encoded x-only (BIP-340) public
// key derived from priv, the representation nostr events carry in their
// `pubkey` field.
func PublicKeyHex(priv *secp256k1.PrivateKey) string {
	return hex.EncodeToString(xOnlyPubKey(priv))
}

// PublicKeyBech32 returns the npub-prefixed bech32 encoding of the public
// key derived from priv, as emitted in ProfileItem.public_key.
func PublicKeyBech32(priv *secp256k1.PrivateKey) (string, error) {
	return EncodeBech32(hrpPublicKey, xOnlyPubKey(priv))
}

// xOnlyPubKey returns the 32-byte x-only coordinate of priv's public key
// (BIP-340 encoding), the first 33 bytes of SerializeCompressed() being
// the 0x02/0x03 parity prefix followed by X.
func xOnlyPubKey(priv *secp256k1.PrivateKey) []byte {
	compressed := priv.PubKey().SerializeCompressed()
	return compressed[1:]
}

// EncodeBech32 encodes data under the given human-readable prefix.
func EncodeBech32(hrp string, data []byte) (string, error) {
	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("converting bits for bech32 encoding: %w", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("bech32 encoding: %w", err)
	}
	return encoded, nil
}

func decodeBech32(s, wantHRP string) ([]byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, err
	}
	if hrp != wantHRP {
		return nil, fmt.Errorf("unexpected bech32 prefix %q, want %q", hrp, wantHRP)
	}
	return bech32.ConvertBits(data, 5, 8, false)
}
