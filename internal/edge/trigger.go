// Package edge runs the capture-infer-feedback loop on the device.
package edge

import "time"

// TriggerEvent is a press or release of the capture button.
type TriggerEvent struct {
	Pressed bool
	At      time.Time
}

// Trigger delivers button transitions. Implementations close the
// events channel when the underlying source goes away.
type Trigger interface {
	Events() <-chan TriggerEvent
	Close() error
}
