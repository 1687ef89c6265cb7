// Package nostrevent builds, signs and mines proof-of-work for the signed
// notes the broker publishes (NIP-01 event serialization, NIP-13 proof of
// work, NIP-48 proxy tag). Signing uses the same secp256k1/schnorr stack
// as internal/nostrkey.
package nostrevent

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/bits"
	"strconv"
	"time"

	"github.com/decred/dcrec/secp256k1/v4"
	"github.com/decred/dcrec/secp256k1/v4/schnorr"

	"nostrss/internal/nostrkey"
)

// KindTextNote is NIP-01's kind 1 (a plain text note).
const KindTextNote = 1

// Event is a signed nostr event ready for relay broadcast.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// serialize produces the NIP-01 canonical serialization used to compute
// the event id: a JSON array [0, pubkey, created_at, kind, tags, content].
// encoding/json escapes the same set of characters NIP-01 requires
// (", \, and control characters), so no custom escaping is needed here.
func serialize(pubKeyHex string, createdAt int64, kind int, tags [][]string, content string) ([]byte, error) {
	if tags == nil {
		tags = [][]string{}
	}
	arr := []any{0, pubKeyHex, createdAt, kind, tags, content}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; NIP-01 has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func computeID(pubKeyHex string, createdAt int64, kind int, tags [][]string, content string) (string, [32]byte, error) {
	raw, err := serialize(pubKeyHex, createdAt, kind, tags, content)
	if err != nil {
		return "", [32]byte{}, err
	}
	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:]), digest, nil
}

// Build assembles and signs a text-note event with the given tags and
// content. If powLevel is zero the event is returned unmined, matching the
// spec's "pow_level = 0 → events are signed without PoW mining" boundary.
func Build(priv *secp256k1.PrivateKey, content string, tags [][]string, powLevel uint8, now time.Time) (*Event, error) {
	pubKeyHex := nostrkey.PublicKeyHex(priv)
	createdAt := now.Unix()

	if powLevel == 0 {
		return sign(priv, pubKeyHex, createdAt, tags, content)
	}

	return mine(priv, pubKeyHex, createdAt, tags, content, powLevel)
}

func sign(priv *secp256k1.PrivateKey, pubKeyHex string, createdAt int64, tags [][]string, content string) (*Event, error) {
	id, digest, err := computeID(pubKeyHex, createdAt, KindTextNote, tags, content)
	if err != nil {
		return nil, err
	}

	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing event: %w", err)
	}

	return &Event{
		ID:        id,
		PubKey:    pubKeyHex,
		CreatedAt: createdAt,
		Kind:      KindTextNote,
		Tags:      tags,
		Content:   content,
		Sig:       hex.EncodeToString(sig.Serialize()),
	}, nil
}

// maxNonceAttempts bounds PoW mining so a misconfigured, unreachably high
// difficulty cannot spin forever; the caller's context/timeout (at the
// relay publisher layer) is the primary guard, this is a hard backstop.
const maxNonceAttempts = 50_000_000

// mine implements NIP-13: it appends a ["nonce", "<n>", "<target>"] tag and
// increments the nonce until the event id has at least powLevel leading
// zero bits, then signs the winning candidate.
func mine(priv *secp256k1.PrivateKey, pubKeyHex string, createdAt int64, tags [][]string, content string, powLevel uint8) (*Event, error) {
	target := strconv.Itoa(int(powLevel))

	for nonce := 0; nonce < maxNonceAttempts; nonce++ {
		candidateTags := append(append([][]string{}, tags...), []string{"nonce", strconv.Itoa(nonce), target})

		id, digest, err := computeID(pubKeyHex, createdAt, KindTextNote, candidateTags, content)
		if err != nil {
			return nil, err
		}

		if leadingZeroBits(digest[:]) >= int(powLevel) {
			sig, err := schnorr.Sign(priv, digest[:])
			if err != nil {
				return nil, fmt.Errorf("signing mined event: %w", err)
			}
			return &Event{
				ID:        id,
				PubKey:    pubKeyHex,
				CreatedAt: createdAt,
				Kind:      KindTextNote,
				Tags:      candidateTags,
				Content:   content,
				Sig:       hex.EncodeToString(sig.Serialize()),
			}, nil
		}
	}

	return nil, fmt.Errorf("exhausted %d nonce attempts without reaching PoW target %d", maxNonceAttempts, powLevel)
}

func leadingZeroBits(digest []byte) int {
	count := 0
	for _, b := range digest {
		if b == 0 {
			count += 8
			continue
		}
		count += bits.LeadingZeros8(b)
		break
	}
	return count
}

// HashtagTag builds a NIP-12 `t` (hashtag) tag.
func HashtagTag(tag string) []string {
	return []string{"t", tag}
}

// ProxyTag builds the NIP-48 proxy tag identifying this event as mirrored
// from an external RSS source, carrying the feed id as the source payload.
func ProxyTag(feedID string) []string {
	return []string{"proxy", feedID, "rss"}
}

// RelayMetadataTag builds an `r` (recommended relay) tag.
func RelayMetadataTag(target string) []string {
	return []string{"r", target}
}
