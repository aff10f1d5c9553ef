package mcclient

import (
	"slices"
	"sync"

	"github.com/buraksezer/consistent"
	"github.com/pior/mcclient/internal"
	"github.com/zeebo/xxh3"
)

// SelectServerFunc picks the server address for key among servers.
type SelectServerFunc func(key string, servers []string) (string, error)

// DefaultSelectServer uses jump hash over xxh3. Adding a server at the end of
// the list moves the minimum number of keys.
func DefaultSelectServer(key string, servers []string) (string, error) {
	switch len(servers) {
	case 0:
		return "", ErrNoServers
	case 1:
		return servers[0], nil
	}
	return servers[internal.JumpHash(xxh3.HashString(key), len(servers))], nil
}

type ringMember string

func (m ringMember) String() string { return string(m) }

type xxh3Hasher struct{}

func (xxh3Hasher) Sum64(data []byte) uint64 { return xxh3.Hash(data) }

// NewRingSelector returns a SelectServerFunc backed by a bounded-load
// consistent hash ring. Unlike DefaultSelectServer, the result does not depend
// on the order of the server list, and removing any server moves few keys
// besides its own. The ring is rebuilt when the list changes.
func NewRingSelector() SelectServerFunc {
	r := &ringSelector{}
	return r.selectServer
}

type ringSelector struct {
	mu      sync.Mutex
	members []string
	ring    *consistent.Consistent
}

func (r *ringSelector) selectServer(key string, servers []string) (string, error) {
	if len(servers) == 0 {
		return "", ErrNoServers
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ring == nil || !slices.Equal(r.members, servers) {
		r.rebuild(servers)
	}
	return r.ring.LocateKey([]byte(key)).String(), nil
}

func (r *ringSelector) rebuild(servers []string) {
	ring := consistent.New(nil, consistent.Config{
		PartitionCount:    271,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            xxh3Hasher{},
	})
	for _, addr := range servers {
		ring.Add(ringMember(addr))
	}

	r.members = slices.Clone(servers)
	r.ring = ring
}
