package sim

import (
	"log"
	"sort"
	"strings"
	"sync"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Component is an element that is being simulated.
type Component interface {
	Named
	Handler
	Hookable

	AddPort(name string, port Port)
	GetPortByName(name string) Port
	Ports() []Port

	NotifyRecv(port Port)
}

// ComponentBase provides some functions that other components can use.
type ComponentBase struct {
	HookableBase
	sync.Mutex

	name      string
	ports     map[string]Port
	portOrder []string
}

// NewComponentBase creates a new ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name
	c.ports = make(map[string]Port)

	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}

// AddPort registers a port under a local name, such as "Top".
func (c *ComponentBase) AddPort(name string, port Port) {
	if _, found := c.ports[name]; found {
		log.Panicf("port %s already exists on component %s", name, c.name)
	}

	c.ports[name] = port
	c.portOrder = append(c.portOrder, name)
}

// GetPortByName returns the port registered under the local name.
func (c *ComponentBase) GetPortByName(name string) Port {
	port, found := c.ports[name]
	if !found {
		available := make([]string, 0, len(c.ports))
		for n := range c.ports {
			available = append(available, n)
		}
		sort.Strings(available)

		log.Panicf("port %s is not available on component %s, "+
			"available ports: %s",
			name, c.name, strings.Join(available, ", "))
	}

	return port
}

// Ports returns the ports in the order they were added.
func (c *ComponentBase) Ports() []Port {
	ports := make([]Port, 0, len(c.portOrder))
	for _, n := range c.portOrder {
		ports = append(ports, c.ports[n])
	}

	return ports
}
