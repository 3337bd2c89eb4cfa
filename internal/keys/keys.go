// Package keys sends keypresses to the game window.
package keys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrWindowNotFound = errors.New("game window not found")
var ErrMultipleWindows = errors.New("multiple game windows found")
var ErrXdotoolMissing = errors.New("xdotool not found")

type Presser interface {
	Press(ctx context.Context, key string) error
}

// CameraMode maps the camera hotkeys to the mode the game switches into.
func CameraMode(key string) (string, bool) {
	switch key {
	case "ctrl+g":
		return "Generation", true
	case "ctrl+o":
		return "Oldest", true
	case "ctrl+r":
		return "Random", true
	}
	return "", false
}

// runner executes a command and returns stdout. Swapped in tests.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrXdotoolMissing
		}
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

// Xdotool focuses the game window and sends keys to it.
type Xdotool struct {
	WindowName string
	FocusDelay time.Duration

	mu       sync.Mutex
	windowID int
	run      runner
	log      *zap.Logger
}

func NewXdotool(windowName string, logger *zap.Logger) *Xdotool {
	return &Xdotool{
		WindowName: windowName,
		FocusDelay: 100 * time.Millisecond,
		run:        execRunner,
		log:        logger.With(zap.String("component", "keys")),
	}
}

// Discover finds the single window matching WindowName and remembers its id.
func (x *Xdotool) Discover(ctx context.Context) (int, error) {
	out, err := x.run(ctx, "xdotool", "search", "--name", x.WindowName)
	if err != nil {
		// xdotool search exits non-zero when nothing matches
		if errors.Is(err, ErrXdotoolMissing) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %q", ErrWindowNotFound, x.WindowName)
	}

	var ids []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	switch {
	case len(ids) == 0:
		return 0, fmt.Errorf("%w: %q", ErrWindowNotFound, x.WindowName)
	case len(ids) > 1:
		return 0, fmt.Errorf("%w (%d): ids %s", ErrMultipleWindows, len(ids), strings.Join(ids, ", "))
	}

	id, err := strconv.Atoi(ids[0])
	if err != nil {
		return 0, fmt.Errorf("bad window id %q: %w", ids[0], err)
	}

	name, err := x.run(ctx, "xdotool", "getwindowname", ids[0])
	if err != nil {
		return 0, err
	}

	x.mu.Lock()
	x.windowID = id
	x.mu.Unlock()

	x.log.Info("discovered game window", zap.Int("window_id", id), zap.String("name", strings.TrimSpace(name)))
	return id, nil
}

func (x *Xdotool) Press(ctx context.Context, key string) error {
	x.mu.Lock()
	id := x.windowID
	x.mu.Unlock()
	if id == 0 {
		// window was not there at startup; look again
		found, err := x.Discover(ctx)
		if err != nil {
			return err
		}
		id = found
	}

	win := strconv.Itoa(id)
	if _, err := x.run(ctx, "xdotool", "windowfocus", win); err != nil {
		return err
	}
	select {
	case <-time.After(x.FocusDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if _, err := x.run(ctx, "xdotool", "key", "--window", win, key); err != nil {
		return err
	}
	x.log.Debug("keypress sent", zap.String("key", key), zap.Int("window_id", id))
	return nil
}

// DryRun logs keypresses instead of sending them.
type DryRun struct {
	log *zap.Logger

	mu      sync.Mutex
	pressed []string
}

func NewDryRun(logger *zap.Logger) *DryRun {
	return &DryRun{log: logger.With(zap.String("component", "keys"))}
}

func (d *DryRun) Press(_ context.Context, key string) error {
	d.mu.Lock()
	d.pressed = append(d.pressed, key)
	d.mu.Unlock()
	d.log.Info("dry-run keypress", zap.String("key", key))
	return nil
}

// Pressed returns the keys seen so far.
func (d *DryRun) Pressed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.pressed...)
}
