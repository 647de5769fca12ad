package clips

import (
	"fmt"
	"path/filepath"
	"time"
)

// Clip is a highlight written to disk
type Clip struct {
	ID       string
	Interval Interval
	Source   string
	Path     string
	Joined   bool // true for the concatenation of all clips of a video
}

// Duration returns the clip length
func (c *Clip) Duration() time.Duration {
	return c.Interval.Length()
}

// Manager collects the clips produced during a run
type Manager struct {
	clips []*Clip
}

// NewManager creates a new clip manager
func NewManager() *Manager {
	return &Manager{
		clips: make([]*Clip, 0),
	}
}

// Add adds a clip to the manager
func (m *Manager) Add(clip *Clip) {
	m.clips = append(m.clips, clip)
}

// Record registers a clip cut from source into path and returns it
func (m *Manager) Record(source, path string, iv Interval) *Clip {
	clip := &Clip{
		ID:       fmt.Sprintf("%s#%d", filepath.Base(source), len(m.clips)+1),
		Interval: iv,
		Source:   source,
		Path:     path,
	}
	m.Add(clip)
	return clip
}

// All returns all clips
func (m *Manager) All() []*Clip {
	return m.clips
}

// Paths returns the output paths of every clip
func (m *Manager) Paths() []string {
	out := make([]string, len(m.clips))
	for i, clip := range m.clips {
		out[i] = clip.Path
	}
	return out
}
