// Package hotkeys grabs global keyboard shortcuts on the X11 root window.
package hotkeys

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/keyseq"
)

// x11Accessor is implemented by backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu   *xgbutil.XUtil
	root xproto.Window
	log  zerolog.Logger

	mu    sync.Mutex
	bound bool
}

var ignoreModsOnce sync.Once

// NewHandler creates a shortcut handler on the backend's X connection.
func NewHandler(backend any, log zerolog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, errors.New("global shortcuts need an X11 backend")
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:   xu,
		root: accessor.RootWindow(),
		log:  log.With().Str("component", "hotkeys").Logger(),
	}, nil
}

// Bind replaces every grab with bindings, a map from action name to a
// shortcut string such as "Meta+Shift+E". A sequence that cannot be parsed
// or grabbed is reported and skipped; the rest stay bound.
func (h *Handler) Bind(bindings map[string]string, fire func(action string)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach()

	actions := make([]string, 0, len(bindings))
	for action := range bindings {
		actions = append(actions, action)
	}
	slices.Sort(actions)

	var errs []error
	count := 0
	for _, action := range actions {
		seq, err := keyseq.Parse(bindings[action])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
			continue
		}
		if seq.Unbound() {
			continue
		}
		if err := h.RegisterFunc(seq.XSequence(), func() { fire(action) }); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", action, seq, err))
			continue
		}
		count++
	}
	h.bound = true
	h.log.Info().Int("count", count).Msg("global shortcuts bound")
	return errors.Join(errs...)
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// Close releases every grab.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach()
	return nil
}

func (h *Handler) detach() {
	if h.bound {
		keybind.Detach(h.xu, h.root)
		h.bound = false
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns 0 plus every combination of the given lock masks.
func ignoreMasks(base []uint16) []uint16 {
	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	slices.Sort(ignore)
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
