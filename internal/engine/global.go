package engine

import "sync"

var global struct {
	mu        sync.Mutex
	consumers int
	inits     int
}

// Init registers a consumer of the engine. The first consumer initializes
// process wide state.
func Init() {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.consumers == 0 {
		global.inits++
	}
	global.consumers++
}

// Release unregisters a consumer. The last one tears process wide state
// down. Releasing without a matching Init does nothing.
func Release() {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.consumers == 0 {
		return
	}
	global.consumers--
}

// Active reports the number of registered consumers.
func Active() int {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.consumers
}

// Initializations reports how many times process wide state was set up.
func Initializations() int {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.inits
}
