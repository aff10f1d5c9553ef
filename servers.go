package mcclient

// Servers provides the current list of server addresses. Implementations may
// return a different list over time; selection adapts on the next call.
type Servers interface {
	List() []string
}

// StaticServers is a fixed server list.
type StaticServers struct {
	addrs []string
}

func NewStaticServers(addrs ...string) *StaticServers {
	return &StaticServers{addrs: addrs}
}

func (s *StaticServers) List() []string {
	return s.addrs
}
