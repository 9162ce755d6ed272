package routing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setCall struct {
	verb    string
	devices []string
}

type recordingBackend struct {
	calls     []setCall
	inits     int
	deinits   int
	setErr    error
	initErr   error
	deinitErr error
}

func (b *recordingBackend) Init() error   { b.inits++; return b.initErr }
func (b *recordingBackend) Deinit() error { b.deinits++; return b.deinitErr }

func (b *recordingBackend) SetDevices(verb string, devices []string) error {
	b.calls = append(b.calls, setCall{verb: verb, devices: append([]string(nil), devices...)})
	return b.setErr
}

type captureLogger struct {
	lines []string
}

func (l *captureLogger) add(level, format string, args ...interface{}) {
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}
func (l *captureLogger) Debugf(f string, a ...interface{}) { l.add("DEBUG", f, a...) }
func (l *captureLogger) Infof(f string, a ...interface{})  { l.add("INFO", f, a...) }
func (l *captureLogger) Warnf(f string, a ...interface{})  { l.add("WARN", f, a...) }
func (l *captureLogger) Errorf(f string, a ...interface{}) { l.add("ERROR", f, a...) }

func newTestRouter(t *testing.T) (*Router, *recordingBackend) {
	t.Helper()
	backend := &recordingBackend{}
	router := NewRouter(backend, nil)
	require.NoError(t, router.Init())
	return router, backend
}

func out(tag string) DeviceInfo { return DeviceInfo{Type: tag, Direction: DirectionOut} }
func in(tag string) DeviceInfo  { return DeviceInfo{Type: tag, Direction: DirectionIn} }

func TestInitAndDeinit(t *testing.T) {
	backend := &recordingBackend{}
	router := NewRouter(backend, nil)
	router.state = ActiveDevices{Out: DeviceOutHDMI, In: DeviceInJack, Mode: Mode(3)}

	require.NoError(t, router.Init())
	assert.Equal(t, ActiveDevices{Mode: ModeNormal}, router.State())
	assert.Equal(t, 1, backend.inits)

	require.NoError(t, router.Deinit())
	assert.Equal(t, 1, backend.deinits)

	t.Run("Backend Failure", func(t *testing.T) {
		backend := &recordingBackend{initErr: StatusErrResource, deinitErr: StatusErrIOCtl}
		router := NewRouter(backend, nil)

		err := router.Init()
		var be *BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, StatusErrResource, be.Code)

		assert.Equal(t, StatusErrIOCtl, StatusOf(router.Deinit()))
	})

	t.Run("No Backend", func(t *testing.T) {
		router := NewRouter(nil, nil)
		assert.ErrorIs(t, router.Init(), ErrParameter)
		assert.ErrorIs(t, router.Deinit(), ErrParameter)

		var nilRouter *Router
		assert.ErrorIs(t, nilRouter.Init(), ErrParameter)
	})
}

func TestSetDevicesKeepsOtherDirection(t *testing.T) {
	router, backend := newTestRouter(t)
	router.state.In = DeviceInMainMic

	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{out("builtin-speaker")}))

	require.Len(t, backend.calls, 1)
	assert.Equal(t, VerbHiFi, backend.calls[0].verb)
	assert.Equal(t, []string{"MainMic", "Speaker"}, backend.calls[0].devices)
	assert.Equal(t, DeviceOutSpeaker, router.State().Out)
	assert.Equal(t, DeviceInMainMic, router.State().In)
}

func TestSetDevicesReplacesDirectionMask(t *testing.T) {
	router, backend := newTestRouter(t)

	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{out("builtin-speaker"), out("hdmi")}))
	assert.Equal(t, DeviceOutSpeaker|DeviceOutHDMI, router.State().Out)

	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{out("audio-jack")}))
	assert.Equal(t, DeviceOutJack, router.State().Out)
	assert.Equal(t, []string{"Headphones"}, backend.calls[1].devices)
}

func TestSetDevicesCallerOrder(t *testing.T) {
	router, backend := newTestRouter(t)
	router.state.Out = DeviceOutHDMI | DeviceOutSpeaker

	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{in("bt"), in("builtin-mic")}))

	assert.Equal(t, []string{"Speaker", "HDMI", "BT Mic", "MainMic"}, backend.calls[0].devices)
	assert.Equal(t, DeviceInBTSCO|DeviceInMainMic, router.State().In)
	assert.Equal(t, DeviceOutHDMI|DeviceOutSpeaker, router.State().Out)
}

func TestSetDevicesIdempotentMask(t *testing.T) {
	router, _ := newTestRouter(t)
	batch := []DeviceInfo{out("builtin-speaker"), out("bt")}

	require.NoError(t, router.SetDevices(VerbHiFi, batch))
	once := router.State()
	require.NoError(t, router.SetDevices(VerbHiFi, batch))
	assert.Equal(t, once, router.State())
}

func TestSetDevicesDirectionIsolation(t *testing.T) {
	router, _ := newTestRouter(t)
	router.state.In = DeviceInJack

	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{out("aux")}))
	assert.Equal(t, DeviceInJack, router.State().In)

	router.state.Out = DeviceOutBTSCO
	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{in("builtin-mic")}))
	assert.Equal(t, DeviceOutBTSCO, router.State().Out)
}

func TestSetDevicesDuplicatesAreKept(t *testing.T) {
	router, backend := newTestRouter(t)

	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{out("hdmi"), out("hdmi")}))
	assert.Equal(t, []string{"HDMI", "HDMI"}, backend.calls[0].devices)
	assert.Equal(t, DeviceOutHDMI, router.State().Out)
}

func TestSetDevicesSkipsUnroutable(t *testing.T) {
	router, backend := newTestRouter(t)

	require.NoError(t, router.SetDevices(VerbHiFi, []DeviceInfo{out("builtin-receiver"), out("usb"), out("aux")}))
	assert.Equal(t, []string{"Line"}, backend.calls[0].devices)
	assert.Equal(t, DeviceOutAux, router.State().Out)
}

func TestSetDevicesParameterErrors(t *testing.T) {
	t.Run("Empty Batch", func(t *testing.T) {
		router, backend := newTestRouter(t)
		assert.ErrorIs(t, router.SetDevices(VerbHiFi, nil), ErrParameter)
		assert.Empty(t, backend.calls)
	})

	t.Run("Oversized Batch", func(t *testing.T) {
		router, backend := newTestRouter(t)
		router.state.Out = DeviceOutSpeaker

		batch := make([]DeviceInfo, MaxDevices+1)
		for i := range batch {
			batch[i] = out("hdmi")
		}
		err := router.SetDevices(VerbHiFi, batch)
		assert.ErrorIs(t, err, ErrParameter)
		assert.Equal(t, StatusErrParameter, StatusOf(err))
		assert.Empty(t, backend.calls)
		assert.Equal(t, DeviceOutSpeaker, router.State().Out, "rejected before any mutation")
	})

	t.Run("Nothing Resolved", func(t *testing.T) {
		router, backend := newTestRouter(t)
		router.state.Out = DeviceOutSpeaker

		err := router.SetDevices(VerbHiFi, []DeviceInfo{out("usb"), out("builtin-receiver")})
		assert.ErrorIs(t, err, ErrParameter)
		assert.Empty(t, backend.calls)
		assert.Equal(t, DeviceNone, router.State().Out)
	})

	t.Run("Name List Overflow", func(t *testing.T) {
		router, backend := newTestRouter(t)
		router.state.In = DeviceInMainMic | DeviceInJack | DeviceInBTSCO

		err := router.SetDevices(VerbHiFi, []DeviceInfo{out("builtin-speaker"), out("hdmi"), out("aux")})
		assert.ErrorIs(t, err, ErrParameter)
		assert.Empty(t, backend.calls)
		assert.Equal(t, DeviceNone, router.State().Out)

		// The rejected devices must not come back on a later reset.
		require.NoError(t, router.Reset(DirectionIn))
		assert.Empty(t, backend.calls)
	})

	t.Run("Invalid Direction", func(t *testing.T) {
		router, backend := newTestRouter(t)
		err := router.SetDevices(VerbHiFi, []DeviceInfo{{Type: "hdmi"}})
		assert.ErrorIs(t, err, ErrParameter)
		assert.Empty(t, backend.calls)
	})
}

func TestSetDevicesBackendError(t *testing.T) {
	backend := &recordingBackend{setErr: StatusErrIOCtl}
	logger := &captureLogger{}
	router := NewRouter(backend, logger)
	require.NoError(t, router.Init())

	err := router.SetDevices(VerbHiFi, []DeviceInfo{out("builtin-speaker")})

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, StatusErrIOCtl, be.Code)
	assert.Equal(t, StatusErrIOCtl, StatusOf(err))
	assert.False(t, errors.Is(err, ErrParameter))
	assert.Len(t, backend.calls, 1)
	assert.Contains(t, logger.lines[len(logger.lines)-1], "ERROR failed to set device")
}

func TestReset(t *testing.T) {
	t.Run("Reapplies Other Direction", func(t *testing.T) {
		router, backend := newTestRouter(t)
		router.state.Out = DeviceOutSpeaker | DeviceOutJack
		router.state.In = DeviceInMainMic

		require.NoError(t, router.Reset(DirectionOut))
		assert.Equal(t, DeviceNone, router.State().Out)
		assert.Equal(t, DeviceInMainMic, router.State().In)
		require.Len(t, backend.calls, 1)
		assert.Equal(t, setCall{verb: VerbHiFi, devices: []string{"MainMic"}}, backend.calls[0])
	})

	t.Run("Input Direction", func(t *testing.T) {
		router, backend := newTestRouter(t)
		router.state.Out = DeviceOutHDMI | DeviceOutSpeaker
		router.state.In = DeviceInBTSCO

		require.NoError(t, router.Reset(DirectionIn))
		assert.Equal(t, DeviceNone, router.State().In)
		assert.Equal(t, []string{"Speaker", "HDMI"}, backend.calls[0].devices)
	})

	t.Run("No Op When Nothing Else Active", func(t *testing.T) {
		router, backend := newTestRouter(t)
		router.state.Out = DeviceOutSpeaker

		require.NoError(t, router.Reset(DirectionOut))
		assert.Equal(t, DeviceNone, router.State().Out)
		assert.Empty(t, backend.calls)
	})

	t.Run("Backend Error", func(t *testing.T) {
		router, backend := newTestRouter(t)
		backend.setErr = StatusErrInternal
		router.state.In = DeviceInJack

		err := router.Reset(DirectionOut)
		assert.Equal(t, StatusErrInternal, StatusOf(err))
	})

	t.Run("Invalid Direction", func(t *testing.T) {
		router, _ := newTestRouter(t)
		assert.ErrorIs(t, router.Reset(Direction(0)), ErrParameter)
	})
}

func TestUpdateRoute(t *testing.T) {
	t.Run("VoIP", func(t *testing.T) {
		router, backend := newTestRouter(t)

		require.NoError(t, router.UpdateRoute(NewRouteInfo("voip", []DeviceInfo{in("bt")})))
		assert.Equal(t, DeviceInBTSCO, router.State().In)
		assert.Equal(t, ModeNormal, router.State().Mode)
		assert.Equal(t, setCall{verb: VerbHiFi, devices: []string{"BT Mic"}}, backend.calls[0])
	})

	t.Run("Reset", func(t *testing.T) {
		router, backend := newTestRouter(t)
		router.state.Out = DeviceOutSpeaker
		router.state.In = DeviceInMainMic

		require.NoError(t, router.UpdateRoute(NewRouteInfo("reset", []DeviceInfo{out("")})))
		assert.Equal(t, DeviceNone, router.State().Out)
		assert.Equal(t, []string{"MainMic"}, backend.calls[0].devices)
	})

	t.Run("Unknown Role Uses Playback", func(t *testing.T) {
		router, backend := newTestRouter(t)

		info := NewRouteInfo("ringtone", []DeviceInfo{out("builtin-speaker"), out("audio-jack")})
		assert.Equal(t, RolePlayback, info.Role)
		require.NoError(t, router.UpdateRoute(info))
		assert.Equal(t, []string{"Speaker", "Headphones"}, backend.calls[0].devices)
		assert.Equal(t, DeviceOutSpeaker|DeviceOutJack, router.State().Out)
	})

	t.Run("Failure Is Returned And Logged", func(t *testing.T) {
		logger := &captureLogger{}
		router := NewRouter(&recordingBackend{}, logger)
		require.NoError(t, router.Init())

		err := router.UpdateRoute(NewRouteInfo("media", []DeviceInfo{out("usb")}))
		assert.ErrorIs(t, err, ErrParameter)
		assert.Contains(t, logger.lines[len(logger.lines)-1], "WARN update playback route return")
	})

	t.Run("No Devices", func(t *testing.T) {
		router, _ := newTestRouter(t)
		assert.ErrorIs(t, router.UpdateRoute(NewRouteInfo("reset", nil)), ErrParameter)
	})
}

func TestUpdateRouteOption(t *testing.T) {
	logger := &captureLogger{}
	router := NewRouter(&recordingBackend{}, logger)

	require.NoError(t, router.UpdateRouteOption(RouteOption{Role: "media", Name: "bt-wbs", Value: 1}))
	assert.Contains(t, logger.lines, "INFO role:media, name:bt-wbs, value:1")

	assert.ErrorIs(t, router.UpdateRouteOption(RouteOption{Name: "x"}), ErrParameter)
	assert.ErrorIs(t, router.UpdateRouteOption(RouteOption{Role: "media"}), ErrParameter)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleVoIP, ParseRole("voip"))
	assert.Equal(t, RoleReset, ParseRole("reset"))
	assert.Equal(t, RolePlayback, ParseRole("VOIP"))
	assert.Equal(t, RolePlayback, ParseRole("alarm"))
	assert.Equal(t, RolePlayback, ParseRole(""))
	assert.Equal(t, VerbHiFi, ModeNormal.Verb())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusErrParameter, StatusOf(paramErrorf("x")))
	assert.Equal(t, StatusErrInternal, StatusOf(errors.New("boom")))
	assert.Equal(t, StatusErrIOCtl, StatusOf(fmt.Errorf("wrapped: %w", StatusErrIOCtl)))
	assert.Equal(t, Status(0x1234), StatusOf(&BackendError{Op: "x", Code: 0x1234, Err: errors.New("e")}))
}
