package hub

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddRemove(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	userID := uuid.New()
	c1 := NewClient(nil, userID, "alice")
	c2 := NewClient(nil, userID, "alice")

	r.Add(c1)
	r.Add(c2)
	req.Equal(2, r.Len())

	req.True(r.Remove(c1))
	req.False(r.Remove(c1), "second removal must report absent")
	req.Equal(1, r.Len())
}

func TestRegistryForUser(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	aliceID, bobID := uuid.New(), uuid.New()
	tab1 := NewClient(nil, aliceID, "alice")
	tab2 := NewClient(nil, aliceID, "alice")
	bob := NewClient(nil, bobID, "bob")

	r.Add(tab1)
	r.Add(tab2)
	r.Add(bob)

	conns := r.ForUser(aliceID)
	req.Len(conns, 2)
	for _, c := range conns {
		req.Equal(aliceID, c.UserID)
	}

	req.Empty(r.ForUser(uuid.New()))
}

func TestRegistryAll(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	req.Empty(r.All())

	c := NewClient(nil, uuid.New(), "alice")
	r.Add(c)

	all := r.All()
	req.Len(all, 1)
	req.Same(c, all[0])
}
