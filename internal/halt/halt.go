// Package halt implements the trading kill switch. A halt is a marker that
// survives process restarts; the engine polls it every cycle and stands down
// while any marker is active.
package halt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	ManualFile = "STOP_TRADING.txt"
	AutoFile   = "TRADING_PAUSED.txt"
)

// Marker is a single persistent halt flag.
type Marker interface {
	// Active returns the recorded reason and whether the marker is set.
	Active() (string, bool)
	Trigger(reason string) error
	// Clear removes the marker, reporting whether it was set. Clearing an
	// unset marker is a no-op.
	Clear() (bool, error)
}

// FileMarker persists the halt as a plain text file so an operator can set
// or clear it with nothing but a shell.
type FileMarker struct {
	path  string
	label string
}

func NewFileMarker(path, label string) *FileMarker {
	return &FileMarker{path: path, label: label}
}

func (m *FileMarker) Active() (string, bool) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		// The file exists but is unreadable; that still counts as halted.
		return m.label + " marker present", true
	}
	reason := strings.TrimSpace(string(raw))
	if reason == "" {
		reason = m.label + " marker present"
	}
	return reason, true
}

func (m *FileMarker) Trigger(reason string) error {
	body := fmt.Sprintf("%s\nTriggered: %s\nDelete %s to resume trading.\n",
		reason, time.Now().Format(time.RFC3339), filepath.Base(m.path))
	return os.WriteFile(m.path, []byte(body), 0o644)
}

func (m *FileMarker) Clear() (bool, error) {
	err := os.Remove(m.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryMarker is an in-process Marker for tests and dry runs.
type MemoryMarker struct {
	mu     sync.Mutex
	reason string
	set    bool
}

func (m *MemoryMarker) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason, m.set
}

func (m *MemoryMarker) Trigger(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reason, m.set = reason, true
	return nil
}

func (m *MemoryMarker) Clear() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.set
	m.reason, m.set = "", false
	return was, nil
}

// Switch composes the operator's manual stop with the engine's automatic
// pause. Either one halts trading; the manual reason wins when both are set.
type Switch struct {
	manual Marker
	auto   Marker
}

func NewSwitch(manual, auto Marker) *Switch {
	return &Switch{manual: manual, auto: auto}
}

// NewFileSwitch builds the standard file-backed switch under dir.
func NewFileSwitch(dir string) *Switch {
	return NewSwitch(
		NewFileMarker(filepath.Join(dir, ManualFile), "Manual stop"),
		NewFileMarker(filepath.Join(dir, AutoFile), "Auto pause"),
	)
}

func (s *Switch) Halted() bool {
	if _, ok := s.manual.Active(); ok {
		return true
	}
	_, ok := s.auto.Active()
	return ok
}

// Reason returns why trading is halted, or "" when it is not.
func (s *Switch) Reason() string {
	if reason, ok := s.manual.Active(); ok {
		return "Manual stop: " + reason
	}
	if reason, ok := s.auto.Active(); ok {
		return "Auto pause: " + reason
	}
	return ""
}

func (s *Switch) TriggerManual(reason string) error {
	return s.manual.Trigger(reason)
}

func (s *Switch) TriggerAutoPause(reason string) error {
	return s.auto.Trigger(reason)
}

// Resume clears both markers and reports which were actually set. Safe to
// call repeatedly.
func (s *Switch) Resume() ([]string, error) {
	var cleared []string
	if was, err := s.manual.Clear(); err != nil {
		return cleared, err
	} else if was {
		cleared = append(cleared, "manual stop")
	}
	if was, err := s.auto.Clear(); err != nil {
		return cleared, err
	} else if was {
		cleared = append(cleared, "auto pause")
	}
	return cleared, nil
}
