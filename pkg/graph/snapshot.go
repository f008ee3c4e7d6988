package graph

// Snapshot is an immutable view of the graph at one poll. Readers hold it
// as long as they like; Refresh replaces the Model's current snapshot
// atomically, never in place.
type Snapshot struct {
	clients     []string
	clientsByID map[string]*Client
	ports       []Port
	edges       []Edge
	peersByPort map[string][]string
}

// EmptySnapshot is what the Model serves while the audio server is down:
// no cached graph, no stale decisions.
func EmptySnapshot() *Snapshot {
	return newSnapshot(nil, nil)
}

// newSnapshot builds a snapshot from the server's ordered port list and
// the peer list of every port.
func newSnapshot(ports []string, peers map[string][]string) *Snapshot {
	s := &Snapshot{
		clientsByID: make(map[string]*Client),
		peersByPort: make(map[string][]string),
	}

	for _, qualified := range ports {
		clientName, local := SplitQualified(qualified)
		c, ok := s.clientsByID[clientName]
		if !ok {
			c = &Client{Name: clientName, Kind: KindOfClient(clientName)}
			s.clientsByID[clientName] = c
			s.clients = append(s.clients, clientName)
		}
		p := Port{
			Client:    clientName,
			Local:     local,
			Qualified: qualified,
			Kind:      KindOfPort(local),
		}
		c.Ports = append(c.Ports, p)
		s.ports = append(s.ports, p)
	}

	seen := make(map[Edge]bool)
	for _, p := range s.ports {
		for _, peer := range peers[p.Qualified] {
			s.peersByPort[p.Qualified] = append(s.peersByPort[p.Qualified], peer)
			src, dst := orient(p.Qualified, peer)
			e := Edge{Source: src, Sink: dst}
			if !seen[e] {
				seen[e] = true
				s.edges = append(s.edges, e)
			}
		}
	}
	return s
}

// orient decides which end of a reported peering is the source. The sink
// rule wins over the source rule so names like record_0L (sink by role,
// L-suffixed like a source) land on the correct side.
func orient(a, b string) (source, sink string) {
	_, al := SplitQualified(a)
	_, bl := SplitQualified(b)

	aSink, bSink := IsSinkName(al), IsSinkName(bl)
	switch {
	case aSink && !bSink:
		return b, a
	case bSink && !aSink:
		return a, b
	case IsSourceName(al):
		return a, b
	default:
		return b, a
	}
}

// Clients returns the client names in first-seen server order.
func (s *Snapshot) Clients() []string {
	out := make([]string, len(s.clients))
	copy(out, s.clients)
	return out
}

// Client returns the named client, or nil if absent.
func (s *Snapshot) Client(name string) *Client {
	return s.clientsByID[name]
}

// HasClient reports whether the client is present.
func (s *Snapshot) HasClient(name string) bool {
	_, ok := s.clientsByID[name]
	return ok
}

// PortsOf returns the ports of a client in server order. Nil if absent.
func (s *Snapshot) PortsOf(client string) []Port {
	c, ok := s.clientsByID[client]
	if !ok {
		return nil
	}
	out := make([]Port, len(c.Ports))
	copy(out, c.Ports)
	return out
}

// SourcePortsOf returns the client's source ports, per the §3 name rules,
// in server order.
func (s *Snapshot) SourcePortsOf(client string) []Port {
	var out []Port
	for _, p := range s.PortsOf(client) {
		if p.IsSource() {
			out = append(out, p)
		}
	}
	return out
}

// SinkPortsOf returns the client's sink ports in server order.
func (s *Snapshot) SinkPortsOf(client string) []Port {
	var out []Port
	for _, p := range s.PortsOf(client) {
		if p.IsSink() {
			out = append(out, p)
		}
	}
	return out
}

// Edges returns every directed edge present at the poll.
func (s *Snapshot) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// PeersOf returns the raw peer list of a port as the server reported it.
func (s *Snapshot) PeersOf(port string) []string {
	peers := s.peersByPort[port]
	out := make([]string, len(peers))
	copy(out, peers)
	return out
}

// ClientsOfKind returns the clients of one kind in server order.
func (s *Snapshot) ClientsOfKind(kind ClientKind) []*Client {
	var out []*Client
	for _, name := range s.clients {
		if c := s.clientsByID[name]; c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// PortCount returns the number of ports in the snapshot.
func (s *Snapshot) PortCount() int {
	return len(s.ports)
}
