package voice

// CacheKey addresses the templates of one preset, note and velocity.
type CacheKey struct {
	BankMSB  int
	BankLSB  int
	Program  int
	Note     int
	Velocity int
}

// Cache memoizes template lists so repeated notes skip zone resolution.
// It must be cleared whenever the sound bank changes.
type Cache struct {
	entries map[CacheKey][]*Template
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[CacheKey][]*Template)}
}

// Get returns the templates stored for k.
func (c *Cache) Get(k CacheKey) ([]*Template, bool) {
	t, ok := c.entries[k]
	return t, ok
}

// Put stores templates under k. An empty list is cached too, so notes
// outside every zone stay cheap.
func (c *Cache) Put(k CacheKey, templates []*Template) {
	c.entries[k] = templates
}

// Clear drops every entry.
func (c *Cache) Clear() {
	clear(c.entries)
}

// Len returns the number of cached keys.
func (c *Cache) Len() int { return len(c.entries) }
