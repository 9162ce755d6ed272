package routing

// Backend programs the hardware mixer paths for a verb and device list.
type Backend interface {
	Init() error
	Deinit() error
	SetDevices(verb string, devices []string) error
}

// Logger is the subset of the component logger the router writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// ActiveDevices is the routed device state.
type ActiveDevices struct {
	Out  Device `json:"active_out"`
	In   Device `json:"active_in"`
	Mode Mode   `json:"mode"`
}

// Mask returns the active mask for dir.
func (a ActiveDevices) Mask(dir Direction) Device {
	if dir == DirectionIn {
		return a.In
	}
	return a.Out
}

// Names returns the catalog names of the active devices for dir.
func (a ActiveDevices) Names(dir Direction) []string {
	return namesFor(dir, a.Mask(dir))
}

func (a *ActiveDevices) clear(dir Direction) {
	if dir == DirectionIn {
		a.In = 0
	} else {
		a.Out = 0
	}
}

// Router reconciles requested devices with the active device set and pushes
// the result to the backend. It is not safe for concurrent use; callers
// serialize access.
type Router struct {
	backend Backend
	log     Logger
	state   ActiveDevices
}

// NewRouter creates a router over backend. A nil logger discards output.
func NewRouter(backend Backend, logger Logger) *Router {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Router{backend: backend, log: logger}
}

// State returns a copy of the active device set.
func (r *Router) State() ActiveDevices {
	return r.state
}

// Init resets the active device set and opens the backend.
func (r *Router) Init() error {
	if r == nil || r.backend == nil {
		return paramErrorf("router has no backend")
	}

	r.state = ActiveDevices{Mode: ModeNormal}

	if err := r.backend.Init(); err != nil {
		r.log.Errorf("failed to init ucm: %v", err)
		return backendError("init", err)
	}
	return nil
}

// Deinit closes the backend.
func (r *Router) Deinit() error {
	if r == nil || r.backend == nil {
		return paramErrorf("router has no backend")
	}

	if err := r.backend.Deinit(); err != nil {
		r.log.Errorf("failed to deinit ucm: %v", err)
		return backendError("deinit", err)
	}
	return nil
}

// SetDevices replaces the active devices of the batch's direction with the
// requested ones and applies them, together with the untouched direction's
// devices, under verb. The direction is taken from the first entry.
func (r *Router) SetDevices(verb string, devices []DeviceInfo) error {
	if r == nil || r.backend == nil {
		return paramErrorf("router has no backend")
	}
	if len(devices) == 0 {
		return paramErrorf("no devices")
	}
	if len(devices) > MaxDevices {
		r.log.Errorf("too many devices: %d > %d", len(devices), MaxDevices)
		return paramErrorf("%d devices exceeds maximum of %d", len(devices), MaxDevices)
	}

	dir := devices[0].Direction
	if !dir.Valid() {
		return paramErrorf("invalid direction %v", dir)
	}

	r.state.clear(dir)
	active := namesFor(dir.Other(), r.state.Mask(dir.Other()))

	// Resolved bits land in next and reach r.state only once the name list
	// is known to be valid.
	next := r.state
	for _, d := range devices {
		dev := Resolve(d.Type, d.Direction)
		r.log.Debugf("device type(%s), enum(0x%x)", d.Type, uint32(dev))

		t, ok := lookup(dev)
		if !ok {
			continue
		}
		active = append(active, t.Name)
		if dev.IsInput() {
			next.In |= dev
		} else {
			next.Out |= dev
		}
	}

	if len(active) == 0 {
		r.log.Errorf("failed to set device: no active device")
		return paramErrorf("no device could be resolved")
	}
	if len(active) > MaxDevices {
		r.log.Errorf("failed to set device: %d names exceeds maximum of %d", len(active), MaxDevices)
		return paramErrorf("%d device names exceeds maximum of %d", len(active), MaxDevices)
	}
	r.state = next

	if err := r.backend.SetDevices(verb, active); err != nil {
		r.log.Errorf("failed to set device: error = %v", err)
		return backendError("set devices", err)
	}
	return nil
}

// Reset silences dir and re-applies whatever is still active in the other
// direction. With nothing left active it succeeds without touching the backend.
func (r *Router) Reset(dir Direction) error {
	if r == nil || r.backend == nil {
		return paramErrorf("router has no backend")
	}
	if !dir.Valid() {
		return paramErrorf("invalid direction %v", dir)
	}

	r.log.Infof("update_route_reset, direction(%v)", dir)

	r.state.clear(dir)
	active := namesFor(dir.Other(), r.state.Mask(dir.Other()))
	for _, name := range active {
		r.log.Infof("added for %v : %s", dir.Other(), name)
	}

	if len(active) == 0 {
		r.log.Debugf("active device is empty, no need to update")
		return nil
	}

	if err := r.backend.SetDevices(r.state.Mode.Verb(), active); err != nil {
		r.log.Errorf("failed to set devices on reset: %v", err)
		return backendError("set devices", err)
	}
	return nil
}

// UpdateRoute dispatches a route update to the strategy for its role.
// Strategy failures are logged as warnings and returned.
func (r *Router) UpdateRoute(info RouteInfo) error {
	if r == nil || r.backend == nil {
		return paramErrorf("router has no backend")
	}
	if len(info.Devices) == 0 {
		return paramErrorf("route update without devices")
	}

	r.log.Infof("role:%s", info.Label)

	var err error
	switch info.Role {
	case RoleVoIP:
		if err = r.updateVoIP(info.Devices); err != nil {
			r.log.Warnf("update voip route return %v", err)
		}
	case RoleReset:
		if err = r.Reset(info.Devices[0].Direction); err != nil {
			r.log.Warnf("update reset return %v", err)
		}
	default:
		if err = r.updatePlaybackCapture(info); err != nil {
			r.log.Warnf("update playback route return %v", err)
		}
	}
	return err
}

// UpdateRouteOption validates and logs a routing option.
func (r *Router) UpdateRouteOption(opt RouteOption) error {
	if r == nil || r.backend == nil {
		return paramErrorf("router has no backend")
	}
	if opt.Role == "" || opt.Name == "" {
		return paramErrorf("route option needs a role and a name")
	}

	r.log.Infof("role:%s, name:%s, value:%d", opt.Role, opt.Name, opt.Value)
	return nil
}

// TODO: select a dedicated VoIP verb once the UCM profile provides one.
func (r *Router) updateVoIP(devices []DeviceInfo) error {
	r.log.Infof("update_route_voip")

	if err := r.SetDevices(ModeNormal.Verb(), devices); err != nil {
		return err
	}
	r.state.Mode = ModeNormal
	return nil
}

func (r *Router) updatePlaybackCapture(info RouteInfo) error {
	r.log.Infof("update_route_ap_playback_capture")

	if err := r.SetDevices(ModeNormal.Verb(), info.Devices); err != nil {
		return err
	}
	r.state.Mode = ModeNormal
	return nil
}
