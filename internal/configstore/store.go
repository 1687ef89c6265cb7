// Package configstore persists Feeds and Profiles to disk as YAML or
// JSON, selected by file extension, grounded on the upstream nostrss
// RssConfig.load_feeds/load_yaml_feeds/load_json_feeds dispatch (no such
// persistence layer exists in the retrieval pack, so this package is new,
// built in the teacher's style — see DESIGN.md). gopkg.in/yaml.v3 covers
// the YAML side; JSON is stdlib encoding/json, matching the teacher's own
// choice for its wire format.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"nostrss/internal/domain"
	"nostrss/pkg/apperror"
)

// Store persists the broker's Feed and Profile sets to a pair of files on
// disk. Feeds and Profiles are saved independently so a `--save` after a
// feed mutation never rewrites the profile file and vice versa.
type Store struct {
	FeedsPath    string
	ProfilesPath string
}

// New creates a Store bound to the given file paths. Either may be empty,
// in which case the corresponding Load/Save is a no-op.
func New(feedsPath, profilesPath string) *Store {
	return &Store{FeedsPath: feedsPath, ProfilesPath: profilesPath}
}

// LoadFeeds reads the feeds file, if configured, dispatching on its
// extension. A missing FeedsPath is not an error: the broker starts with
// no feeds.
func (s *Store) LoadFeeds() ([]domain.Feed, error) {
	if s.FeedsPath == "" {
		return nil, nil
	}

	var feeds []domain.Feed
	if err := load(s.FeedsPath, &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

// SaveFeeds overwrites the feeds file with the current feed set.
func (s *Store) SaveFeeds(feeds []domain.Feed) error {
	if s.FeedsPath == "" {
		return nil
	}
	return save(s.FeedsPath, feeds)
}

// LoadProfiles reads the profiles file, if configured.
func (s *Store) LoadProfiles() ([]domain.Profile, error) {
	if s.ProfilesPath == "" {
		return nil, nil
	}

	var profiles []domain.Profile
	if err := load(s.ProfilesPath, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// SaveProfiles overwrites the profiles file with the current profile set.
func (s *Store) SaveProfiles(profiles []domain.Profile) error {
	if s.ProfilesPath == "" {
		return nil
	}
	return save(s.ProfilesPath, profiles)
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperror.Wrap(err, apperror.CodeConfigIO, fmt.Sprintf("reading %s", path))
	}

	switch formatOf(path) {
	case formatYAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return apperror.Wrap(err, apperror.CodeConfigIO, fmt.Sprintf("parsing yaml %s", path))
		}
	case formatJSON:
		if err := json.Unmarshal(data, v); err != nil {
			return apperror.Wrap(err, apperror.CodeConfigIO, fmt.Sprintf("parsing json %s", path))
		}
	default:
		return apperror.New(apperror.CodeUnknownFormat, fmt.Sprintf("unrecognized config extension for %s, want .yaml, .yml or .json", path))
	}
	return nil
}

func save(path string, v any) error {
	var data []byte
	var err error

	switch formatOf(path) {
	case formatYAML:
		data, err = yaml.Marshal(v)
	case formatJSON:
		data, err = json.MarshalIndent(v, "", "  ")
	default:
		return apperror.New(apperror.CodeUnknownFormat, fmt.Sprintf("unrecognized config extension for %s, want .yaml, .yml or .json", path))
	}
	if err != nil {
		return apperror.Wrap(err, apperror.CodeConfigIO, fmt.Sprintf("encoding %s", path))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperror.Wrap(err, apperror.CodeConfigIO, fmt.Sprintf("creating directory for %s", path))
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperror.Wrap(err, apperror.CodeConfigIO, fmt.Sprintf("writing %s", path))
	}
	return nil
}

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatYAML
	formatJSON
)

func formatOf(path string) fileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json":
		return formatJSON
	default:
		return formatUnknown
	}
}
