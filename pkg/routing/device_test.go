package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		tag  string
		dir  Direction
		want Device
	}{
		{"builtin-speaker", DirectionOut, DeviceOutSpeaker},
		{"builtin-speaker", DirectionIn, DeviceOutSpeaker},
		{"builtin-receiver", DirectionOut, DeviceOutReceiver},
		{"audio-jack", DirectionOut, DeviceOutJack},
		{"audio-jack", DirectionIn, DeviceInJack},
		{"bt", DirectionOut, DeviceOutBTSCO},
		{"bt", DirectionIn, DeviceInBTSCO},
		{"aux", DirectionOut, DeviceOutAux},
		{"hdmi", DirectionOut, DeviceOutHDMI},
		{"builtin-mic", DirectionIn, DeviceInMainMic},
		{"builtin-mic", DirectionOut, DeviceInMainMic},
		{"audio-jack", Direction(0), DeviceNone},
		{"bt", Direction(0x4), DeviceNone},
		{"usb", DirectionOut, DeviceNone},
		{"BT", DirectionOut, DeviceNone},
		{"builtin", DirectionOut, DeviceNone},
		{"builtin-speaker ", DirectionOut, DeviceNone},
		{"", DirectionIn, DeviceNone},
	}

	for _, tt := range tests {
		t.Run(tt.tag+"/"+tt.dir.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.tag, tt.dir))
		})
	}
}

func TestResolveComparesBoundedPrefix(t *testing.T) {
	long := strings.Repeat("x", MaxNameLen)
	assert.True(t, matchName(long+"tail", long+"other"))
	assert.Equal(t, DeviceNone, Resolve("builtin-speaker"+strings.Repeat("!", MaxNameLen), DirectionOut))
}

func TestDeviceIsInput(t *testing.T) {
	assert.True(t, DeviceInMainMic.IsInput())
	assert.True(t, DeviceInBTSCO.IsInput())
	assert.False(t, DeviceOutHDMI.IsInput())
	assert.False(t, DeviceNone.IsInput())
}

func TestCatalog(t *testing.T) {
	out := Catalog(DirectionOut)
	assert.Equal(t, []DeviceType{
		{DeviceOutSpeaker, "Speaker"},
		{DeviceOutJack, "Headphones"},
		{DeviceOutBTSCO, "Bluetooth"},
		{DeviceOutAux, "Line"},
		{DeviceOutHDMI, "HDMI"},
	}, out)

	in := Catalog(DirectionIn)
	assert.Equal(t, []DeviceType{
		{DeviceInMainMic, "MainMic"},
		{DeviceInJack, "HeadsetMic"},
		{DeviceInBTSCO, "BT Mic"},
	}, in)

	// Callers get a copy.
	out[0].Name = "changed"
	assert.Equal(t, "Speaker", Catalog(DirectionOut)[0].Name)
}

func TestNamesForUsesCatalogOrder(t *testing.T) {
	assert.Equal(t, []string{"Speaker", "Bluetooth", "HDMI"},
		namesFor(DirectionOut, DeviceOutHDMI|DeviceOutSpeaker|DeviceOutBTSCO))
	assert.Equal(t, []string{"MainMic", "BT Mic"},
		namesFor(DirectionIn, DeviceInBTSCO|DeviceInMainMic))
	assert.Empty(t, namesFor(DirectionIn, 0))
	assert.Empty(t, namesFor(DirectionIn, DeviceIn))
	// Receiver has no catalog entry.
	assert.Empty(t, namesFor(DirectionOut, DeviceOutReceiver))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("in")
	assert.NoError(t, err)
	assert.Equal(t, DirectionIn, d)

	d, err = ParseDirection("out")
	assert.NoError(t, err)
	assert.Equal(t, DirectionOut, d)

	_, err = ParseDirection("both")
	assert.ErrorIs(t, err, ErrParameter)
}
