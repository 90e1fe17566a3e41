// internal/rules/rule.go

package rules

import "strconv"

// Rule pairs an ordered list of conditions, all of which must hold, with the
// action to take. Names are for reporting and need not be unique.
type Rule struct {
	Name       string      `json:"name" yaml:"name"`
	Priority   int         `json:"priority" yaml:"priority"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Action     Action      `json:"action" yaml:"action"`
}

// Mode is the operating mode of the air conditioner.
type Mode string

const (
	ModeOff   Mode = "OFF"
	ModeEco   Mode = "ECO"
	ModeCool  Mode = "COOL"
	ModeSleep Mode = "SLEEP"
)

var SupportedModes = []Mode{ModeOff, ModeEco, ModeCool, ModeSleep}

func (m Mode) Valid() bool {
	for _, supported := range SupportedModes {
		if m == supported {
			return true
		}
	}
	return false
}

// FanSpeed is the fan level.
type FanSpeed string

const (
	FanLow    FanSpeed = "LOW"
	FanMedium FanSpeed = "MEDIUM"
	FanHigh   FanSpeed = "HIGH"
)

var SupportedFanSpeeds = []FanSpeed{FanLow, FanMedium, FanHigh}

func (f FanSpeed) Valid() bool {
	for _, supported := range SupportedFanSpeeds {
		if f == supported {
			return true
		}
	}
	return false
}

// Action is the decision returned for a matched rule. Setpoint is nil when
// the mode makes a target temperature meaningless.
type Action struct {
	Mode     Mode     `json:"ac_mode" yaml:"ac_mode"`
	FanSpeed FanSpeed `json:"fan_speed" yaml:"fan_speed"`
	Setpoint *float64 `json:"setpoint" yaml:"setpoint"`
	Reason   string   `json:"reason" yaml:"reason"`
}

// Setpoint returns a pointer suitable for Action.Setpoint.
func Setpoint(celsius float64) *float64 {
	return &celsius
}

// Clone returns a copy that shares no memory with a.
func (a Action) Clone() Action {
	if a.Setpoint != nil {
		a.Setpoint = Setpoint(*a.Setpoint)
	}
	return a
}

// SetpointString renders the setpoint, or "None" when absent.
func (a Action) SetpointString() string {
	if a.Setpoint == nil {
		return "None"
	}
	return strconv.FormatFloat(*a.Setpoint, 'f', -1, 64)
}
