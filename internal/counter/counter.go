// Package counter implements a bounded integer counter with a derived
// display string.
package counter

import (
	"strconv"
	"strings"
)

// RenderFunc receives the display string after every state change.
type RenderFunc func(display string)

// Settings describes how a counter is bounded and rendered.
type Settings struct {
	Start        int
	Max          *int // nil means unbounded
	Prefix       string
	Suffix       string
	MaxDelimiter string
}

// Counter is a non-negative integer with an optional inclusive upper bound.
// It is not safe for concurrent use; callers serialize access.
type Counter struct {
	value    int
	settings Settings
	onRender RenderFunc
}

// New creates a counter at the configured start value. A start value outside
// [0, max] is clamped into range.
func New(settings Settings, onRender RenderFunc) *Counter {
	c := &Counter{
		settings: settings,
		onRender: onRender,
	}

	if settings.Max != nil && *settings.Max < 0 {
		zero := 0
		c.settings.Max = &zero
	}

	c.value = c.clamp(settings.Start)

	return c
}

// Value returns the current count.
func (c *Counter) Value() int {
	return c.value
}

// Max returns the upper bound and whether one is configured.
func (c *Counter) Max() (int, bool) {
	if c.settings.Max == nil {
		return 0, false
	}

	return *c.settings.Max, true
}

// Settings returns the settings the counter was built with.
func (c *Counter) Settings() Settings {
	return c.settings
}

// Increment adds one unless the counter sits at its max.
// Returns true if the value changed.
func (c *Counter) Increment() bool {
	if limit, ok := c.Max(); ok && c.value >= limit {
		return false
	}

	c.value++
	c.emit()

	return true
}

// Decrement subtracts one unless the counter is already zero.
// Returns true if the value changed.
func (c *Counter) Decrement() bool {
	if c.value <= 0 {
		return false
	}

	c.value--
	c.emit()

	return true
}

// Reset sets the value to zero and always renders.
func (c *Counter) Reset() {
	c.value = 0
	c.emit()
}

// Render returns "{prefix}{value}{suffix}", or
// "{prefix}{value}{delimiter}{max}{suffix}" when a max is configured.
func (c *Counter) Render() string {
	var b strings.Builder

	b.WriteString(c.settings.Prefix)
	b.WriteString(strconv.Itoa(c.value))

	if limit, ok := c.Max(); ok {
		b.WriteString(c.settings.MaxDelimiter)
		b.WriteString(strconv.Itoa(limit))
	}

	b.WriteString(c.settings.Suffix)

	return b.String()
}

// Refresh forwards the current display string without changing state.
func (c *Counter) Refresh() {
	c.emit()
}

func (c *Counter) emit() {
	if c.onRender != nil {
		c.onRender(c.Render())
	}
}

func (c *Counter) clamp(v int) int {
	if v < 0 {
		return 0
	}

	if limit, ok := c.Max(); ok && v > limit {
		return limit
	}

	return v
}
