package audioserver

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// socketConnFactory builds a Conn for one socket transport. The nng and
// zmq files register themselves here from init when their build tag is
// on, the same way database drivers do.
type socketConnFactory func(endpoint string, timeout time.Duration) (Conn, error)

var (
	factoriesMu sync.Mutex
	factories   = make(map[string]socketConnFactory)
)

func registerSocketConn(name string, f socketConnFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// NewConn builds the Conn named by the configured transport: exec (the
// JACK command-line tools, the default), mem (in-memory simulation), or
// a compiled-in socket transport.
func NewConn(transport, endpoint string, timeout time.Duration) (Conn, error) {
	switch transport {
	case "", "exec":
		return NewExecConn(timeout), nil
	case "mem":
		return NewMemConn(), nil
	}

	factoriesMu.Lock()
	f, ok := factories[transport]
	factoriesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transport %q is not compiled into this binary (available: %v)", transport, availableTransports())
	}
	return f(endpoint, timeout)
}

func availableTransports() []string {
	names := []string{"exec", "mem"}
	factoriesMu.Lock()
	for name := range factories {
		names = append(names, name)
	}
	factoriesMu.Unlock()
	sort.Strings(names)
	return names
}
