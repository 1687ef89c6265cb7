package domain

import "fmt"

// DefaultProfileID is the reserved, protected profile id every broker must
// have from boot. It can never be deleted and its relays are the fallback
// for any other profile that declares none of its own.
const DefaultProfileID = "default"

// Profile is a signing identity: a private key plus optional display
// metadata and a set of relay endpoints new notes are broadcast to.
type Profile struct {
	ID                string   `yaml:"id" json:"id"`
	PrivateKey        string   `yaml:"private_key" json:"private_key"`
	Relays            []Relay  `yaml:"relays,omitempty" json:"relays,omitempty"`
	Name              string   `yaml:"name,omitempty" json:"name,omitempty"`
	DisplayName       string   `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Description       string   `yaml:"description,omitempty" json:"description,omitempty"`
	Picture           string   `yaml:"picture,omitempty" json:"picture,omitempty"`
	Banner            string   `yaml:"banner,omitempty" json:"banner,omitempty"`
	NIP05             string   `yaml:"nip05,omitempty" json:"nip05,omitempty"`
	LUD16             string   `yaml:"lud16,omitempty" json:"lud16,omitempty"`
	PoWLevel          uint8    `yaml:"pow_level" json:"pow_level"`
	RecommendedRelays []string `yaml:"recommended_relays,omitempty" json:"recommended_relays,omitempty"`
}

// IsDefault reports whether this profile is the reserved `default` identity.
func (p Profile) IsDefault() bool {
	return p.ID == DefaultProfileID
}

// Validate checks structural invariants that do not require parsing the
// private key. The registry does not parse keys either: the control
// service's AddProfile and the daemon's bootstrap parse them with the
// nostrkey package before a profile is registered.
func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id must not be empty")
	}
	if p.PrivateKey == "" {
		return fmt.Errorf("profile %q has no private_key", p.ID)
	}
	return nil
}
