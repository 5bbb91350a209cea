package narrator

import (
	"sync"

	"github.com/quillcast/narrator/pkg/audio"
	"github.com/quillcast/narrator/pkg/types"
)

// Clip is one synthesized audio unit: the playable handle plus the raw bytes
// it was loaded from. The bytes are kept so the gateway can mirror segment
// audio to the editor client without re-synthesizing.
type Clip struct {
	// Handle is the playable resource. Owned by the cache once stored;
	// released on Clear.
	Handle audio.Handle

	// Data is the raw PCM the handle was loaded from.
	Data []byte
}

// cacheKey identifies one synthesis result. VoiceProfile is comparable, so
// field-wise equality of the whole key is exactly the required cache
// semantics — same text with a different emotion is a different entry.
type cacheKey struct {
	text  string
	voice types.VoiceProfile
}

// SynthesisCache memoizes synthesis results for the lifetime of one
// narrator session. Entries are never evicted except by Clear (new scene
// analysis, explicit reset, or session teardown); sessions are short-lived,
// so the bound is the scene itself.
//
// Safe for concurrent use: the playback path and the preload path both
// touch it.
type SynthesisCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*Clip
}

// NewSynthesisCache creates an empty cache.
func NewSynthesisCache() *SynthesisCache {
	return &SynthesisCache{entries: make(map[cacheKey]*Clip)}
}

// Get returns the cached clip for (text, voice), or nil on a miss.
func (c *SynthesisCache) Get(text string, voice types.VoiceProfile) *Clip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[cacheKey{text: text, voice: voice}]
}

// Put stores clip under (text, voice). Last write wins: concurrent in-flight
// synthesis for the same key may both complete, in which case the displaced
// clip's handle is released so the audio resource does not leak.
func (c *SynthesisCache) Put(text string, voice types.VoiceProfile, clip *Clip) {
	key := cacheKey{text: text, voice: voice}
	c.mu.Lock()
	prev := c.entries[key]
	c.entries[key] = clip
	c.mu.Unlock()

	if prev != nil && prev != clip && prev.Handle != nil {
		prev.Handle.Release()
	}
}

// Len returns the number of cached entries.
func (c *SynthesisCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear releases every held audio handle and empties the map. Audio buffers
// are scarce native resources on real players, so release is explicit
// rather than left to garbage collection.
//
// Clear is idempotent, never panics, and is safe to call from teardown
// paths while synthesis is still in flight — a late Put after Clear simply
// repopulates the (empty) map.
func (c *SynthesisCache) Clear() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[cacheKey]*Clip)
	c.mu.Unlock()

	for _, clip := range old {
		if clip != nil && clip.Handle != nil {
			clip.Handle.Release()
		}
	}
}
