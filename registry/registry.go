// Package registry provides service registration and discovery for
// JSON-RPC servers. Servers register their advertise address under a
// service name; discovery clients resolve the name to live instances
// before dialing.
package registry

// ServiceInstance describes one registered server endpoint.
type ServiceInstance struct {
	Addr    string
	Weight  int // relative weight for load balancing
	Version string
}

// Registry is the registration and discovery interface.
type Registry interface {
	// Register adds an instance under serviceName with a ttl-second
	// lease that is renewed automatically until Deregister or process
	// death.
	Register(serviceName string, instance ServiceInstance, ttl int64) error

	// Deregister removes the instance registered under addr.
	Deregister(serviceName string, addr string) error

	// Discover returns the currently registered instances.
	Discover(serviceName string) ([]ServiceInstance, error)

	// Watch emits the full instance list after every change.
	Watch(serviceName string) <-chan []ServiceInstance
}
