// Package slots defines the discrete booking grid: the ordered sequence
// of bookable time slots within the daily window, alignment checks for
// reservation boundaries, and consecutiveness of multi-slot requests.
package slots

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Slot is a discrete point on the booking grid.
type Slot struct {
	Label string `json:"label"` // "10:00"
	Index int    `json:"index"` // position in the day sequence
}

// Config holds grid parameters. The grid is process-wide static
// configuration, fixed at startup.
type Config struct {
	DayStart    string // first slot start, "08:00"
	DayEnd      string // last slot start, "20:30" (inclusive)
	SlotMinutes int    // slot width in minutes
}

// DefaultConfig returns the default grid: 30-minute slots from 08:00
// through 20:30.
func DefaultConfig() Config {
	return Config{
		DayStart:    "08:00",
		DayEnd:      "20:30",
		SlotMinutes: 30,
	}
}

// Grid is the finite ordered sequence of slot labels for one day.
// Consecutiveness is defined purely by adjacency in this sequence,
// independent of calendar date.
type Grid struct {
	startMin int // minutes since midnight of the first slot start
	endMin   int // minutes since midnight of the last slot start
	step     int
	labels   []string
	index    map[string]int
}

// NewGrid builds a grid from config.
func NewGrid(cfg Config) (*Grid, error) {
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 30
	}
	start, err := parseClock(cfg.DayStart)
	if err != nil {
		return nil, fmt.Errorf("parse day start: %w", err)
	}
	end, err := parseClock(cfg.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("parse day end: %w", err)
	}
	if end < start {
		return nil, fmt.Errorf("day end %s before day start %s", cfg.DayEnd, cfg.DayStart)
	}
	if (end-start)%cfg.SlotMinutes != 0 {
		return nil, fmt.Errorf("window %s-%s is not a whole number of %d-minute slots",
			cfg.DayStart, cfg.DayEnd, cfg.SlotMinutes)
	}
	if end+cfg.SlotMinutes > 24*60 {
		return nil, fmt.Errorf("last slot %s+%dm crosses midnight", cfg.DayEnd, cfg.SlotMinutes)
	}

	g := &Grid{
		startMin: start,
		endMin:   end,
		step:     cfg.SlotMinutes,
		index:    make(map[string]int),
	}
	for m := start; m <= end; m += cfg.SlotMinutes {
		label := formatClock(m)
		g.index[label] = len(g.labels)
		g.labels = append(g.labels, label)
	}
	return g, nil
}

// Sequence returns the ordered slot sequence for one day.
func (g *Grid) Sequence() []Slot {
	out := make([]Slot, len(g.labels))
	for i, label := range g.labels {
		out[i] = Slot{Label: label, Index: i}
	}
	return out
}

// SlotMinutes returns the slot width.
func (g *Grid) SlotMinutes() int {
	return g.step
}

// Contains reports whether the label names a slot on the grid.
func (g *Grid) Contains(label string) bool {
	_, ok := g.index[label]
	return ok
}

// AreConsecutive reports whether the slots form a single contiguous
// block. True for fewer than two slots; duplicates collapse since the
// input is a set. Labels not on the grid make the set non-consecutive.
func (g *Grid) AreConsecutive(labels []string) bool {
	if len(labels) < 2 {
		return true
	}

	seen := make(map[int]bool, len(labels))
	indices := make([]int, 0, len(labels))
	for _, label := range labels {
		idx, ok := g.index[label]
		if !ok {
			return false
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}

	sort.Ints(indices)
	for i := 1; i < len(indices); i++ {
		if indices[i] != indices[i-1]+1 {
			return false
		}
	}
	return true
}

// AlignedStart reports whether t falls exactly on a slot start.
func (g *Grid) AlignedStart(t time.Time) bool {
	m, ok := clockMinutes(t)
	if !ok {
		return false
	}
	return m >= g.startMin && m <= g.endMin && (m-g.startMin)%g.step == 0
}

// AlignedEnd reports whether t is a valid reservation end boundary,
// i.e. the exclusive end of some slot on the grid.
func (g *Grid) AlignedEnd(t time.Time) bool {
	m, ok := clockMinutes(t)
	if !ok {
		return false
	}
	return m >= g.startMin+g.step && m <= g.endMin+g.step && (m-g.startMin)%g.step == 0
}

// AlignedRange reports whether [start, end) is a grid-aligned,
// non-empty range within a single day window.
func (g *Grid) AlignedRange(start, end time.Time) bool {
	if !start.Before(end) {
		return false
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return false
	}
	return g.AlignedStart(start) && g.AlignedEnd(end)
}

// SlotTimes returns the absolute [start, end) boundaries of the slot at
// the given index on the given date, in the date's location.
func (g *Grid) SlotTimes(date time.Time, index int) (time.Time, time.Time) {
	m := g.startMin + index*g.step
	start := time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, date.Location())
	return start, start.Add(time.Duration(g.step) * time.Minute)
}

// DayWindow returns the absolute boundaries of the whole bookable
// window on the given date.
func (g *Grid) DayWindow(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(),
		g.startMin/60, g.startMin%60, 0, 0, date.Location())
	endMin := g.endMin + g.step
	end := time.Date(date.Year(), date.Month(), date.Day(),
		endMin/60, endMin%60, 0, 0, date.Location())
	return start, end
}

func clockMinutes(t time.Time) (int, bool) {
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %w", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %s", s)
	}
	return hour*60 + minute, nil
}

func formatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
