package iface

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Cache keeps normalized interfaces by address for one session.
type Cache struct {
	mu   sync.RWMutex
	data map[common.Address]*Interface
}

func NewCache() *Cache {
	return &Cache{data: make(map[common.Address]*Interface)}
}

func (c *Cache) Get(address common.Address) (*Interface, bool) {
	c.mu.RLock()
	iface, ok := c.data[address]
	c.mu.RUnlock()
	return iface, ok
}

func (c *Cache) Set(address common.Address, iface *Interface) {
	c.mu.Lock()
	c.data[address] = iface
	c.mu.Unlock()
}

// Len returns the number of cached interfaces.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
