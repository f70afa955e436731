// Package view tracks whether this client is looking at the combat screen
// of a room. The flag is local to the client and never shared; combat can
// stay active for the room while a client has stepped out of the view.
package view

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/combat"
)

// Settings is the per-client, per-room state kept on disk.
type Settings struct {
	Viewing bool `yaml:"viewing"`
	// Left is set when the client explicitly left the view while combat
	// was active. It clears when combat ends.
	Left  bool `yaml:"left"`
	Muted bool `yaml:"muted"`
}

// Controller owns the Settings file of one client in one room.
type Controller struct {
	path   string
	room   string
	logger *zap.SugaredLogger

	mu       sync.Mutex
	settings Settings
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l.Sugar()
		}
	}
}

// Open loads the settings of clientID in room from dir, creating nothing
// until the first change.
func Open(dir, clientID, room string, opts ...Option) (*Controller, error) {
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("settings dir and client id are required")
	}
	room = strings.ToUpper(strings.TrimSpace(room))
	for _, part := range []string{clientID, room} {
		if !safeName(part) {
			return nil, fmt.Errorf("invalid settings path component %q", part)
		}
	}
	c := &Controller{
		path:   filepath.Join(dir, clientID, room+".yaml"),
		room:   room,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read view settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &c.settings); err != nil {
			return nil, fmt.Errorf("decode view settings %s: %w", c.path, err)
		}
	}
	return c, nil
}

// safeName reports whether s names a single file or directory below the
// settings dir.
func safeName(s string) bool {
	return s != "" && s != "." && s != ".." &&
		!strings.ContainsAny(s, `/\`) && filepath.Base(s) == s
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Viewing reports whether the client is on the combat screen.
func (c *Controller) Viewing() bool { return c.Settings().Viewing }

// Muted reports whether combat sounds are off.
func (c *Controller) Muted() bool { return c.Settings().Muted }

// Join puts the client on the combat screen.
func (c *Controller) Join() error {
	return c.update(func(s *Settings) {
		s.Viewing = true
		s.Left = false
	})
}

// Leave takes the client off the combat screen without ending combat.
func (c *Controller) Leave() error {
	return c.update(func(s *Settings) {
		s.Viewing = false
		s.Left = true
	})
}

// Resume reconciles the flag with the room's combat state, on startup and
// whenever IsActive changes. Active combat pulls the client back in unless
// it explicitly left; inactive combat takes it out and forgets the leave.
func (c *Controller) Resume(active bool) (bool, error) {
	var viewing bool
	err := c.update(func(s *Settings) {
		if active {
			s.Viewing = !s.Left
		} else {
			s.Viewing = false
			s.Left = false
		}
		viewing = s.Viewing
	})
	return viewing, err
}

// SetMuted turns combat sounds off or on.
func (c *Controller) SetMuted(muted bool) error {
	return c.update(func(s *Settings) { s.Muted = muted })
}

// ToggleMute flips the mute setting and returns the new value.
func (c *Controller) ToggleMute() (bool, error) {
	var muted bool
	err := c.update(func(s *Settings) {
		s.Muted = !s.Muted
		muted = s.Muted
	})
	return muted, err
}

func (c *Controller) update(fn func(*Settings)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.settings
	fn(&c.settings)
	if c.settings == before {
		return nil
	}
	if err := c.save(); err != nil {
		c.logger.Warnf("room %s: save view settings: %v", c.room, err)
		return err
	}
	return nil
}

// save writes the settings through a temporary file. Callers hold c.mu.
func (c *Controller) save() error {
	data, err := yaml.Marshal(c.settings)
	if err != nil {
		return fmt.Errorf("encode view settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write view settings: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace view settings: %w", err)
	}
	return nil
}

// SoundGate forwards combat events to next unless the client muted
// sounds. Sync issues always pass.
type SoundGate struct {
	ctl  *Controller
	next combat.Notifier
}

// NewSoundGate returns a gate in front of next.
func NewSoundGate(ctl *Controller, next combat.Notifier) *SoundGate {
	if next == nil {
		next = combat.NopNotifier{}
	}
	return &SoundGate{ctl: ctl, next: next}
}

// Notify implements combat.Notifier.
func (g *SoundGate) Notify(e combat.Event) {
	if e.Kind != combat.EventSyncIssue && g.ctl.Muted() {
		return
	}
	g.next.Notify(e)
}
