package service

// Peek returns the client's session without building or touching it.
func (c *ClientRegistry) Peek(clientID string) (*ClientSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, found := c.items[clientID]
	if !found {
		return nil, false
	}
	ent, _ := el.Value.(*registryEntry)
	if ent == nil || c.isIdle(ent, c.now()) {
		return nil, false
	}
	return ent.session, true
}
