package input

import (
	"github.com/go-vgo/robotgo"
)

// Backend is the device input primitive set. It is invoked only from
// Flush and ReleaseAll; everything above it is intent bookkeeping.
type Backend interface {
	// KeyDown starts holding a key.
	KeyDown(key string) error
	// KeyUp releases a held key.
	KeyUp(key string) error
	// KeyTap presses and releases a key once.
	KeyTap(key string) error
	// MoveMouse places the pointer at absolute screen coordinates.
	MoveMouse(x, y int) error
	// MouseDown starts holding the left mouse button.
	MouseDown() error
	// MouseUp releases the left mouse button.
	MouseUp() error
}

// RobotgoBackend drives the real keyboard and mouse through robotgo.
type RobotgoBackend struct{}

// NewRobotgoBackend returns the production device backend.
func NewRobotgoBackend() *RobotgoBackend {
	return &RobotgoBackend{}
}

// KeyDown implements Backend.
func (RobotgoBackend) KeyDown(key string) error {
	return robotgo.KeyDown(key)
}

// KeyUp implements Backend.
func (RobotgoBackend) KeyUp(key string) error {
	return robotgo.KeyUp(key)
}

// KeyTap implements Backend.
func (RobotgoBackend) KeyTap(key string) error {
	return robotgo.KeyTap(key)
}

// MoveMouse implements Backend.
func (RobotgoBackend) MoveMouse(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

// MouseDown implements Backend.
func (RobotgoBackend) MouseDown() error {
	return robotgo.Toggle("left", "down")
}

// MouseUp implements Backend.
func (RobotgoBackend) MouseUp() error {
	return robotgo.Toggle("left", "up")
}
