package routing

import "fmt"

// MaxNameLen bounds every device-tag and role comparison.
const MaxNameLen = 32

// MaxDevices is the largest device batch, and the largest device-name list,
// that is ever handed to the UCM backend.
const MaxDevices = 5

// Direction is the stream direction a device belongs to.
type Direction uint32

const (
	DirectionIn  Direction = 0x01
	DirectionOut Direction = 0x02
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return fmt.Sprintf("direction(0x%x)", uint32(d))
	}
}

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Other returns the opposite direction.
func (d Direction) Other() Direction {
	if d == DirectionOut {
		return DirectionIn
	}
	return DirectionOut
}

// ParseDirection parses "in" or "out".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "in":
		return DirectionIn, nil
	case "out":
		return DirectionOut, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrParameter, s)
	}
}

// Device is a bitmask of physical audio devices. Input devices carry the
// DeviceIn range bit.
type Device uint32

const (
	DeviceNone Device = 0

	DeviceOutSpeaker  Device = 0x00000001
	DeviceOutReceiver Device = 0x00000002
	DeviceOutJack     Device = 0x00000004
	DeviceOutBTSCO    Device = 0x00000008
	DeviceOutAux      Device = 0x00000010
	DeviceOutHDMI     Device = 0x00000020
	DeviceOutAll      Device = 0x000000FF

	DeviceIn        Device = 0x80000000
	DeviceInMainMic        = DeviceIn | 0x00000001
	DeviceInSubMic         = DeviceIn | 0x00000002
	DeviceInJack           = DeviceIn | 0x00000004
	DeviceInBTSCO          = DeviceIn | 0x00000008
)

// IsInput reports whether d lies in the input bit range.
func (d Device) IsInput() bool {
	return d&DeviceIn != 0
}

func (d Device) String() string {
	return fmt.Sprintf("0x%x", uint32(d))
}

// DeviceType pairs a device bit with the name the UCM backend knows it by.
type DeviceType struct {
	Device Device `json:"device"`
	Name   string `json:"name"`
}

var outDeviceTypes = [...]DeviceType{
	{DeviceOutSpeaker, "Speaker"},
	{DeviceOutJack, "Headphones"},
	{DeviceOutBTSCO, "Bluetooth"},
	{DeviceOutAux, "Line"},
	{DeviceOutHDMI, "HDMI"},
}

var inDeviceTypes = [...]DeviceType{
	{DeviceInMainMic, "MainMic"},
	{DeviceInJack, "HeadsetMic"},
	{DeviceInBTSCO, "BT Mic"},
}

// Catalog returns the device table for dir in catalog order.
func Catalog(dir Direction) []DeviceType {
	if dir == DirectionIn {
		return append([]DeviceType(nil), inDeviceTypes[:]...)
	}
	return append([]DeviceType(nil), outDeviceTypes[:]...)
}

func catalogFor(d Device) []DeviceType {
	if d.IsInput() {
		return inDeviceTypes[:]
	}
	return outDeviceTypes[:]
}

// lookup finds the catalog entry for exactly d.
func lookup(d Device) (DeviceType, bool) {
	for _, t := range catalogFor(d) {
		if t.Device == d {
			return t, true
		}
	}
	return DeviceType{}, false
}

// namesFor collects, in catalog order, the name of every device of dir whose
// bit is set in mask.
func namesFor(dir Direction, mask Device) []string {
	var names []string
	if dir == DirectionIn {
		bits := mask &^ DeviceIn
		for _, t := range inDeviceTypes {
			if bits&t.Device != 0 {
				names = append(names, t.Name)
			}
		}
		return names
	}
	for _, t := range outDeviceTypes {
		if mask&t.Device != 0 {
			names = append(names, t.Name)
		}
	}
	return names
}

// matchName compares a and b the way a bounded C string compare would:
// only the first MaxNameLen bytes take part.
func matchName(a, b string) bool {
	if len(a) > MaxNameLen {
		a = a[:MaxNameLen]
	}
	if len(b) > MaxNameLen {
		b = b[:MaxNameLen]
	}
	return a == b
}

// Device tags accepted from callers.
const (
	TagBuiltinSpeaker  = "builtin-speaker"
	TagBuiltinReceiver = "builtin-receiver"
	TagAudioJack       = "audio-jack"
	TagBluetooth       = "bt"
	TagAux             = "aux"
	TagHDMI            = "hdmi"
	TagBuiltinMic      = "builtin-mic"
)

// Resolve maps a device tag to its Device for the given direction. Unknown
// tags, and jack/bt tags with a direction that is neither in nor out,
// resolve to DeviceNone.
func Resolve(tag string, dir Direction) Device {
	switch {
	case matchName(tag, TagBuiltinSpeaker):
		return DeviceOutSpeaker
	case matchName(tag, TagBuiltinReceiver):
		return DeviceOutReceiver
	case matchName(tag, TagAudioJack) && dir == DirectionOut:
		return DeviceOutJack
	case matchName(tag, TagBluetooth) && dir == DirectionOut:
		return DeviceOutBTSCO
	case matchName(tag, TagAux):
		return DeviceOutAux
	case matchName(tag, TagHDMI):
		return DeviceOutHDMI
	case matchName(tag, TagBuiltinMic):
		return DeviceInMainMic
	case matchName(tag, TagAudioJack) && dir == DirectionIn:
		return DeviceInJack
	case matchName(tag, TagBluetooth) && dir == DirectionIn:
		return DeviceInBTSCO
	default:
		return DeviceNone
	}
}
