package routing

// Role selects the routing strategy for a route update.
type Role int

const (
	// RolePlayback covers every role without a dedicated strategy.
	RolePlayback Role = iota
	RoleVoIP
	RoleReset
)

func (r Role) String() string {
	switch r {
	case RoleVoIP:
		return "voip"
	case RoleReset:
		return "reset"
	default:
		return "playback"
	}
}

// Stream roles that currently share the playback/capture strategy.
var PlaybackRoles = []string{
	"media",
	"alarm",
	"notification",
	"emergency",
	"voice-information",
	"voice-recognition",
	"ringtone",
	"call-voice",
}

// ParseRole maps a caller-supplied role label to its strategy. Unknown labels
// fall through to RolePlayback.
func ParseRole(label string) Role {
	switch {
	case matchName(label, "voip"):
		return RoleVoIP
	case matchName(label, "reset"):
		return RoleReset
	default:
		return RolePlayback
	}
}

// Mode indexes the verb applied to the hardware.
type Mode int

const (
	ModeNormal Mode = iota
)

// UCM verbs.
const (
	VerbHiFi     = "HiFi"
	VerbInactive = "Inactive"
	VerbVoIP     = "VoIP"
)

var modeToVerb = [...]string{
	ModeNormal: VerbHiFi,
}

// Verb returns the UCM verb for m.
func (m Mode) Verb() string {
	if m < 0 || int(m) >= len(modeToVerb) {
		return VerbHiFi
	}
	return modeToVerb[m]
}

// DeviceInfo is one requested device.
type DeviceInfo struct {
	Type      string    `json:"type"`
	Direction Direction `json:"direction"`
}

// RouteInfo is a route update request. Label keeps the caller's role string
// for logging; Role is what selects the strategy.
type RouteInfo struct {
	Role    Role
	Label   string
	Devices []DeviceInfo
}

// NewRouteInfo parses label once and builds a RouteInfo.
func NewRouteInfo(label string, devices []DeviceInfo) RouteInfo {
	return RouteInfo{
		Role:    ParseRole(label),
		Label:   label,
		Devices: devices,
	}
}

// RouteOption is a per-role routing option. It is validated and logged only.
type RouteOption struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Value int32  `json:"value"`
}
