package input

import (
	"image"
	"time"
)

// Logger defines the logging interface used by the input package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bindings maps movement intents to physical keys.
type Bindings struct {
	Left     string `yaml:"left"`
	Right    string `yaml:"right"`
	Up       string `yaml:"up"`
	Down     string `yaml:"down"`
	FastDown string `yaml:"fast_down"`
}

// DefaultBindings returns the standard 2D-sidescroller layout.
func DefaultBindings() Bindings {
	return Bindings{
		Left:     "a",
		Right:    "d",
		Up:       "space",
		Down:     "s",
		FastDown: "b",
	}
}

// DefaultDashGap is the pause between the two taps of a dash double-tap —
// just long enough for the target application to register it.
const DefaultDashGap = 30 * time.Millisecond

// dash directions queued by DashLeft/DashRight.
const (
	dashLeft  = "left"
	dashRight = "right"
)

// Intent is the per-frame action intent buffer plus the persistent mirror
// of physical device state.
//
// Declaration methods only mutate memory and may be called any number of
// times per frame. Flush applies the accumulated intent as device I/O and
// resets the per-frame fields; the physical mirror (held keys, mouse
// button) survives across frames and always reflects the real device.
type Intent struct {
	backend  Backend
	logger   Logger
	bindings Bindings
	dashGap  time.Duration

	// Persistent physical state.
	held      map[string]struct{}
	mouseDown bool

	// Per-frame intent, reset after every Flush.
	desired map[string]struct{}
	aim     *image.Point
	attack  bool
	dashes  []string
}

// NewIntent creates an intent buffer over a device backend.
// A zero dashGap falls back to DefaultDashGap.
func NewIntent(backend Backend, bindings Bindings, dashGap time.Duration) *Intent {
	if dashGap <= 0 {
		dashGap = DefaultDashGap
	}
	return &Intent{
		backend:  backend,
		logger:   noopLogger{},
		bindings: bindings,
		dashGap:  dashGap,
		held:     make(map[string]struct{}),
		desired:  make(map[string]struct{}),
	}
}

// SetLogger sets the logger for the intent buffer.
func (in *Intent) SetLogger(logger Logger) {
	if logger != nil {
		in.logger = logger
	}
}

// HoldKey declares that a key should be held this frame.
func (in *Intent) HoldKey(key string) {
	in.desired[key] = struct{}{}
}

// MoveLeft holds the left movement key this frame.
func (in *Intent) MoveLeft() { in.HoldKey(in.bindings.Left) }

// MoveRight holds the right movement key this frame.
func (in *Intent) MoveRight() { in.HoldKey(in.bindings.Right) }

// FlyUp holds the fly/jump key this frame.
func (in *Intent) FlyUp() { in.HoldKey(in.bindings.Up) }

// MoveDown holds the down key this frame.
func (in *Intent) MoveDown() { in.HoldKey(in.bindings.Down) }

// MoveDownFast holds the fast-fall key this frame.
func (in *Intent) MoveDownFast() { in.HoldKey(in.bindings.FastDown) }

// AimAt declares a pointer target for this frame.
func (in *Intent) AimAt(x, y int) {
	p := image.Pt(x, y)
	in.aim = &p
}

// Attack declares that the mouse button should be held this frame.
func (in *Intent) Attack() {
	in.attack = true
}

// AttackAt aims at a screen position and holds attack this frame.
// Call it every frame to keep firing; omitting it releases the button on
// the next flush.
func (in *Intent) AttackAt(x, y int) {
	in.AimAt(x, y)
	in.Attack()
}

// DashLeft queues a dash left (double-tap of the left key).
// Only the first dash queued in a frame executes.
func (in *Intent) DashLeft() { in.dashes = append(in.dashes, dashLeft) }

// DashRight queues a dash right (double-tap of the right key).
func (in *Intent) DashRight() { in.dashes = append(in.dashes, dashRight) }

// Flush applies the accumulated frame intent as device input, in fixed
// order: dash, key reconciliation, aim, mouse button, reset. Called
// exactly once per frame by the script runner after the policy returns.
//
// Device failures are logged and never abort the flush; a failed mouse
// hold is followed by a defensive mouse-up so the button cannot be left
// physically stuck.
func (in *Intent) Flush() {
	in.flushDash()
	in.reconcileKeys()

	if in.aim != nil {
		if err := in.backend.MoveMouse(in.aim.X, in.aim.Y); err != nil {
			in.logger.Warn("pointer move failed", "x", in.aim.X, "y", in.aim.Y, "error", err)
		}
	}

	in.reconcileButton()

	// Reset per-frame intent; the physical mirror is left untouched.
	clear(in.desired)
	in.aim = nil
	in.attack = false
	in.dashes = in.dashes[:0]
}

// flushDash executes at most one queued dash — the first one. The brief
// sleep between taps is the only blocking operation in the engine.
func (in *Intent) flushDash() {
	if len(in.dashes) == 0 {
		return
	}

	key := in.bindings.Left
	if in.dashes[0] == dashRight {
		key = in.bindings.Right
	}

	// A double-tap is not recognised while the key is already down.
	if _, ok := in.held[key]; ok {
		if err := in.backend.KeyUp(key); err != nil {
			in.logger.Warn("dash pre-release failed", "key", key, "error", err)
		}
		delete(in.held, key)
	}

	if err := in.backend.KeyTap(key); err != nil {
		in.logger.Warn("dash tap failed", "key", key, "error", err)
		return
	}
	time.Sleep(in.dashGap)
	if err := in.backend.KeyTap(key); err != nil {
		in.logger.Warn("dash tap failed", "key", key, "error", err)
	}
	// The tap leaves the key released; reconciliation below re-presses it
	// if the policy also wants to move in that direction.
}

// reconcileKeys releases keys held but no longer desired and presses keys
// desired but not held, then sets held = desired.
func (in *Intent) reconcileKeys() {
	for key := range in.held {
		if _, want := in.desired[key]; !want {
			if err := in.backend.KeyUp(key); err != nil {
				in.logger.Warn("key release failed", "key", key, "error", err)
			}
		}
	}
	for key := range in.desired {
		if _, have := in.held[key]; !have {
			if err := in.backend.KeyDown(key); err != nil {
				in.logger.Warn("key press failed", "key", key, "error", err)
			}
		}
	}

	clear(in.held)
	for key := range in.desired {
		in.held[key] = struct{}{}
	}
}

// reconcileButton mirrors the attack flag onto the mouse button.
func (in *Intent) reconcileButton() {
	switch {
	case in.attack && !in.mouseDown:
		if err := in.backend.MouseDown(); err != nil {
			in.logger.Warn("mouse hold failed", "error", err)
			// Defensive: never leave the button in an unknown down state.
			if upErr := in.backend.MouseUp(); upErr != nil {
				in.logger.Warn("defensive mouse release failed", "error", upErr)
			}
			return
		}
		in.mouseDown = true
	case !in.attack && in.mouseDown:
		if err := in.backend.MouseUp(); err != nil {
			in.logger.Warn("mouse release failed", "error", err)
		}
		in.mouseDown = false
	}
}

// ReleaseAll unconditionally releases every held key and the mouse button
// and clears the physical mirror. Used on shutdown and abnormal exit;
// calling it again on an already-clean state is a no-op.
func (in *Intent) ReleaseAll() {
	for key := range in.held {
		if err := in.backend.KeyUp(key); err != nil {
			in.logger.Warn("key release failed", "key", key, "error", err)
		}
	}
	clear(in.held)

	if in.mouseDown {
		if err := in.backend.MouseUp(); err != nil {
			in.logger.Warn("mouse release failed", "error", err)
		}
		in.mouseDown = false
	}
}

// HeldKeys returns a copy of the currently held key set, for diagnostics.
func (in *Intent) HeldKeys() []string {
	keys := make([]string, 0, len(in.held))
	for key := range in.held {
		keys = append(keys, key)
	}
	return keys
}
