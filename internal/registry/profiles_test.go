package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostrss/internal/domain"
)

func TestDeleteDefaultForbidden(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.Profile{ID: "default"}))

	err := r.Delete("default")
	require.ErrorIs(t, err, ErrForbidden)

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "default", list[0].ID)
}

func TestAddDuplicateFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.Profile{ID: "p1"}))

	err := r.Add(domain.Profile{ID: "p1"})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDeleteUnknownNotFound(t *testing.T) {
	r := New()
	err := r.Delete("ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRelaysInheritsFromDefault(t *testing.T) {
	r := New()
	defaultRelays := []domain.Relay{{Name: "d", Target: "wss://default", Active: true}}
	require.NoError(t, r.Add(domain.Profile{ID: "default", Relays: defaultRelays}))
	require.NoError(t, r.Add(domain.Profile{ID: "p2"}))

	p2, err := r.Get("p2")
	require.NoError(t, err)

	resolved, err := r.ResolveRelays(p2)
	require.NoError(t, err)
	assert.Equal(t, defaultRelays, resolved)
}

func TestResolveRelaysKeepsOwnRelays(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.Profile{ID: "default"}))
	own := []domain.Relay{{Name: "own", Target: "wss://own", Active: true}}
	require.NoError(t, r.Add(domain.Profile{ID: "p2", Relays: own}))

	p2, err := r.Get("p2")
	require.NoError(t, err)

	resolved, err := r.ResolveRelays(p2)
	require.NoError(t, err)
	assert.Equal(t, own, resolved)
}

func TestDefaultRelaysNeverMutatedByDeleteProfile(t *testing.T) {
	r := New()
	defaultRelays := []domain.Relay{{Name: "d", Target: "wss://default", Active: true}}
	require.NoError(t, r.Add(domain.Profile{ID: "default", Relays: defaultRelays}))
	require.NoError(t, r.Add(domain.Profile{ID: "p2"}))

	require.NoError(t, r.Delete("p2"))

	relays, err := r.DefaultRelays()
	require.NoError(t, err)
	assert.Equal(t, defaultRelays, relays)
}
