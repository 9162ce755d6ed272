package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dougsko/audiohal/pkg/routing"
)

// Command represents a command sent to the core engine
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response from the core engine
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    uint32                 `json:"code,omitempty"`
}

// Status represents the current routing state
type Status struct {
	Card       string    `json:"card"`
	ActiveOut  uint32    `json:"active_out"`
	ActiveIn   uint32    `json:"active_in"`
	OutDevices []string  `json:"out_devices"`
	InDevices  []string  `json:"in_devices"`
	Mode       int       `json:"mode"`
	Verb       string    `json:"verb"`
	Uptime     string    `json:"uptime"`
	StartTime  time.Time `json:"start_time"`
	Version    string    `json:"version"`
}

// RouteEvent is published after every route update attempt
type RouteEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Devices   []string  `json:"devices"`
	Success   bool      `json:"success"`
	Code      uint32    `json:"code"`
	Error     string    `json:"error,omitempty"`
	State     Status    `json:"state"`
}

// ParseCommand parses a text command into a Command struct
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty command")
	}
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(parts[0]),
		Args: make(map[string]interface{}),
	}

	if len(parts) < 2 {
		if cmd.Type == CmdRoute || cmd.Type == CmdOption {
			return nil, fmt.Errorf("%s requires arguments", cmd.Type)
		}
		return cmd, nil
	}
	args := strings.TrimSpace(parts[1])

	switch cmd.Type {
	case CmdRoute:
		// ROUTE:voip bt/in,builtin-speaker/out
		routeParts := strings.SplitN(args, " ", 2)
		cmd.Args["role"] = routeParts[0]
		if len(routeParts) < 2 {
			return nil, fmt.Errorf("ROUTE requires at least one device")
		}
		devices, err := ParseDevices(routeParts[1])
		if err != nil {
			return nil, err
		}
		cmd.Args["devices"] = devices

	case CmdOption:
		// OPTION:media bt-wbs 1
		optParts := strings.Fields(args)
		if len(optParts) != 3 {
			return nil, fmt.Errorf("OPTION requires role, name and value")
		}
		value, err := strconv.ParseInt(optParts[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid option value %q: %w", optParts[2], err)
		}
		cmd.Args["option"] = routing.RouteOption{
			Role:  optParts[0],
			Name:  optParts[1],
			Value: int32(value),
		}

	case CmdHistory:
		// HISTORY:10
		cmd.Args["limit"] = args
	}

	return cmd, nil
}

// ParseDevices parses a comma-separated list of tag/direction pairs. The tag
// may be empty, which is how a reset names only a direction.
func ParseDevices(list string) ([]routing.DeviceInfo, error) {
	var devices []routing.DeviceInfo
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		idx := strings.LastIndex(item, "/")
		if idx < 0 {
			return nil, fmt.Errorf("device %q missing /in or /out", item)
		}
		dir, err := routing.ParseDirection(item[idx+1:])
		if err != nil {
			return nil, err
		}
		devices = append(devices, routing.DeviceInfo{Type: item[:idx], Direction: dir})
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices given")
	}
	return devices, nil
}

// FormatDevices is the inverse of ParseDevices
func FormatDevices(devices []routing.DeviceInfo) string {
	parts := make([]string, 0, len(devices))
	for _, d := range devices {
		parts = append(parts, d.Type+"/"+d.Direction.String())
	}
	return strings.Join(parts, ",")
}

// String converts a Response to its JSON line form
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// NewStatusErrorResponse creates an error response carrying the HAL status of err
func NewStatusErrorResponse(err error) *Response {
	return &Response{
		Success: false,
		Error:   err.Error(),
		Code:    uint32(routing.StatusOf(err)),
	}
}

// Protocol commands
const (
	CmdStatus  = "STATUS"
	CmdRoute   = "ROUTE"
	CmdOption  = "OPTION"
	CmdHistory = "HISTORY"
	CmdDevices = "DEVICES"
	CmdPing    = "PING"
	CmdQuit    = "QUIT"
)
