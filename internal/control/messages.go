// Package control implements the Control Service: the synchronous gRPC
// surface over the live (Scheduler, ProfileRegistry) state described in
// spec §4.6/§6. Since the retrieval pack contains no generated .pb.go
// collaborator code for this domain, the wire messages here are
// hand-written structs carried over a JSON gRPC codec (codec.go) instead
// of protoc output — see DESIGN.md.
package control

import (
	"nostrss/internal/domain"
	"nostrss/internal/nostrkey"
)

// FeedItem is the wire representation of a Feed.
type FeedItem struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Schedule  string   `json:"schedule"`
	Profiles  []string `json:"profiles,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Template  string   `json:"template,omitempty"`
	CacheSize int      `json:"cache_size,omitempty"`
	PoWLevel  uint8    `json:"pow_level,omitempty"`
}

func feedItemFromDomain(f domain.Feed) FeedItem {
	return FeedItem{
		ID:        f.ID,
		Name:      f.Name,
		URL:       f.URL,
		Schedule:  f.Schedule,
		Profiles:  f.Profiles,
		Tags:      f.Tags,
		Template:  f.Template,
		CacheSize: f.CacheSize,
		PoWLevel:  f.PoWLevel,
	}
}

func (fi FeedItem) toDomain() domain.Feed {
	return domain.Feed{
		ID:        fi.ID,
		Name:      fi.Name,
		URL:       fi.URL,
		Schedule:  fi.Schedule,
		Profiles:  fi.Profiles,
		Tags:      fi.Tags,
		Template:  fi.Template,
		CacheSize: fi.CacheSize,
		PoWLevel:  fi.PoWLevel,
	}
}

// ProfileItem is the wire representation of a Profile. It carries the
// derived bech32 public key rather than the private key, per spec §6.
type ProfileItem struct {
	ID                string   `json:"id"`
	PublicKey         string   `json:"public_key"`
	Name              string   `json:"name,omitempty"`
	Relays            []Relay  `json:"relays,omitempty"`
	DisplayName       string   `json:"display_name,omitempty"`
	Description       string   `json:"description,omitempty"`
	Picture           string   `json:"picture,omitempty"`
	Banner            string   `json:"banner,omitempty"`
	NIP05             string   `json:"nip05,omitempty"`
	LUD16             string   `json:"lud16,omitempty"`
	PoWLevel          uint8    `json:"pow_level,omitempty"`
	RecommendedRelays []string `json:"recommended_relays,omitempty"`
}

// NewProfileItem is the wire representation used to create a profile: it
// carries the private key (never emitted back out by ProfilesList/ProfileInfo).
type NewProfileItem struct {
	ID                string   `json:"id"`
	PrivateKey        string   `json:"private_key"`
	Name              string   `json:"name,omitempty"`
	Relays            []Relay  `json:"relays,omitempty"`
	DisplayName       string   `json:"display_name,omitempty"`
	Description       string   `json:"description,omitempty"`
	Picture           string   `json:"picture,omitempty"`
	Banner            string   `json:"banner,omitempty"`
	NIP05             string   `json:"nip05,omitempty"`
	LUD16             string   `json:"lud16,omitempty"`
	PoWLevel          uint8    `json:"pow_level,omitempty"`
	RecommendedRelays []string `json:"recommended_relays,omitempty"`
}

// profileItemFromDomain derives ProfileItem.public_key (NIP-19 bech32,
// per spec §6 and §8's invariant that it always match the stored
// private key) and never copies the private key itself onto the wire.
func profileItemFromDomain(p domain.Profile) (ProfileItem, error) {
	priv, err := nostrkey.ParsePrivateKey(p.PrivateKey)
	if err != nil {
		return ProfileItem{}, err
	}
	pub, err := nostrkey.PublicKeyBech32(priv)
	if err != nil {
		return ProfileItem{}, err
	}
	return ProfileItem{
		ID:                p.ID,
		PublicKey:         pub,
		Name:              p.Name,
		Relays:            relaysFromDomain(p.Relays),
		DisplayName:       p.DisplayName,
		Description:       p.Description,
		Picture:           p.Picture,
		Banner:            p.Banner,
		NIP05:             p.NIP05,
		LUD16:             p.LUD16,
		PoWLevel:          p.PoWLevel,
		RecommendedRelays: p.RecommendedRelays,
	}, nil
}

func (np NewProfileItem) toDomain() domain.Profile {
	return domain.Profile{
		ID:                np.ID,
		PrivateKey:        np.PrivateKey,
		Relays:            relaysToDomain(np.Relays),
		Name:              np.Name,
		DisplayName:       np.DisplayName,
		Description:       np.Description,
		Picture:           np.Picture,
		Banner:            np.Banner,
		NIP05:             np.NIP05,
		LUD16:             np.LUD16,
		PoWLevel:          np.PoWLevel,
		RecommendedRelays: np.RecommendedRelays,
	}
}

// Relay is the wire representation of a domain.Relay.
type Relay struct {
	Name     string `json:"name"`
	Target   string `json:"target"`
	Active   bool   `json:"active"`
	Proxy    string `json:"proxy,omitempty"`
	PoWLevel uint8  `json:"pow_level,omitempty"`
}

func relaysToDomain(rs []Relay) []domain.Relay {
	if rs == nil {
		return nil
	}
	out := make([]domain.Relay, len(rs))
	for i, r := range rs {
		out[i] = domain.Relay{Name: r.Name, Target: r.Target, Active: r.Active, Proxy: r.Proxy, PoWLevel: r.PoWLevel}
	}
	return out
}

func relaysFromDomain(rs []domain.Relay) []Relay {
	if rs == nil {
		return nil
	}
	out := make([]Relay, len(rs))
	for i, r := range rs {
		out[i] = Relay{Name: r.Name, Target: r.Target, Active: r.Active, Proxy: r.Proxy, PoWLevel: r.PoWLevel}
	}
	return out
}

// Request/response pairs, one per RPC in the §6 method table.

type StateRequest struct{}
type StateResponse struct {
	State string `json:"state"`
}

type FeedsListRequest struct{}
type FeedsListResponse struct {
	Feeds []FeedItem `json:"feeds"`
}

type FeedInfoRequest struct {
	ID string `json:"id"`
}
type FeedInfoResponse struct {
	Feed FeedItem `json:"feed"`
}

type AddFeedRequest struct {
	Feed FeedItem `json:"feed"`
	Save bool     `json:"save,omitempty"`
}
type AddFeedResponse struct{}

type DeleteFeedRequest struct {
	ID   string `json:"id"`
	Save bool   `json:"save,omitempty"`
}
type DeleteFeedResponse struct{}

type ProfilesListRequest struct{}
type ProfilesListResponse struct {
	Profiles []ProfileItem `json:"profiles"`
}

type ProfileInfoRequest struct {
	ID string `json:"id"`
}
type ProfileInfoResponse struct {
	Profile ProfileItem `json:"profile"`
}

type AddProfileRequest struct {
	Profile NewProfileItem `json:"profile"`
	Save    bool           `json:"save,omitempty"`
}
type AddProfileResponse struct{}

type DeleteProfileRequest struct {
	ID   string `json:"id"`
	Save bool   `json:"save,omitempty"`
}
type DeleteProfileResponse struct{}

type StartJobRequest struct {
	FeedID string `json:"feed_id"`
}
type StartJobResponse struct{}

type StopJobRequest struct {
	FeedID string `json:"feed_id"`
}
type StopJobResponse struct{}
