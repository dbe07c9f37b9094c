package policy

import (
	"strings"

	"github.com/greyline-dev/screenpilot/internal/input"
	"github.com/greyline-dev/screenpilot/internal/perception"
	"github.com/greyline-dev/screenpilot/internal/runner"
)

// DodgeConfig tunes the dodge behavior.
type DodgeConfig struct {
	// PlayerX, PlayerY is the assumed on-screen player position,
	// normally the screen center.
	PlayerX int
	PlayerY int
	// Distance within which an entity triggers a dodge. Zero means
	// always dodge the nearest entity.
	Distance int
}

// NewDodge builds the dodge behavior: move horizontally away from the
// nearest visible entity while firing at it.
func NewDodge(cfg DodgeConfig) runner.Policy {
	return func(view *perception.Store, intent *input.Intent) error {
		var nearest *perception.Observation
		var nearestDist int

		for _, obs := range view.Found() {
			dx := obs.X - cfg.PlayerX
			dy := obs.Y - cfg.PlayerY
			dist := dx*dx + dy*dy
			if nearest == nil || dist < nearestDist {
				o := obs
				nearest = &o
				nearestDist = dist
			}
		}
		if nearest == nil {
			return nil
		}
		if cfg.Distance > 0 && nearestDist > cfg.Distance*cfg.Distance {
			return nil
		}

		if nearest.X < cfg.PlayerX {
			intent.MoveRight()
		} else {
			intent.MoveLeft()
		}
		intent.AttackAt(nearest.X, nearest.Y)
		return nil
	}
}

// KiteConfig tunes the kiting behavior.
type KiteConfig struct {
	// TargetKeyword selects the tracked entity by substring match on
	// its template name (case-insensitive).
	TargetKeyword string
	// PlayerX is the assumed horizontal player position.
	PlayerX int
	// DefaultX, DefaultY seed the remembered target position before the
	// first sighting, so the behavior fires somewhere sensible.
	DefaultX int
	DefaultY int
	// OscillationPeriod is the number of frames spent flying up before
	// an equal number spent falling. Zero defaults to 20.
	OscillationPeriod int
	// FirePulse fires the weapon every Nth frame. Zero defaults to 3.
	FirePulse int
}

// NewKite builds the run-and-gun kiting behavior: keep maximum
// horizontal distance from the target with constant dashing, oscillate
// height to break attack tracking, and pulse fire at the last known
// target position. The returned policy is stateful; build one per run.
func NewKite(cfg KiteConfig) runner.Policy {
	if cfg.OscillationPeriod <= 0 {
		cfg.OscillationPeriod = 20
	}
	if cfg.FirePulse <= 0 {
		cfg.FirePulse = 3
	}

	keyword := strings.ToLower(cfg.TargetKeyword)
	lastX, lastY := cfg.DefaultX, cfg.DefaultY
	frame := 0

	return func(view *perception.Store, intent *input.Intent) error {
		frame++

		for _, obs := range view.Found() {
			if keyword != "" && !strings.Contains(strings.ToLower(obs.Name), keyword) {
				continue
			}
			lastX, lastY = obs.X, obs.Y
			break
		}

		// Run and dash away from the remembered target position. Dash is
		// requested every frame; the intent buffer serialises it.
		if lastX > cfg.PlayerX {
			intent.MoveLeft()
			intent.DashLeft()
		} else {
			intent.MoveRight()
			intent.DashRight()
		}

		// Sawtooth height: climb for a period, then fall for a period.
		if (frame/cfg.OscillationPeriod)%2 == 0 {
			intent.FlyUp()
		}

		if frame%cfg.FirePulse == 0 {
			intent.AttackAt(lastX, lastY)
		}
		return nil
	}
}

// RegisterBuiltins registers the built-in behaviors for a screen of the
// given dimensions.
func RegisterBuiltins(reg *Registry, screenW, screenH int) {
	centerX, centerY := screenW/2, screenH/2
	reg.Register("dodge", NewDodge(DodgeConfig{PlayerX: centerX, PlayerY: centerY}))
	reg.Register("kite", NewKite(KiteConfig{
		PlayerX:  centerX,
		DefaultX: centerX,
		DefaultY: screenH / 4,
	}))
}
