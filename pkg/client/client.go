package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/dougsko/audiohal/pkg/protocol"
	"github.com/dougsko/audiohal/pkg/routing"
	"github.com/dougsko/audiohal/pkg/storage"
)

// SocketClient represents a client connection to the core engine
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// CommandError is a failure reported by the daemon
type CommandError struct {
	Command string
	Message string
	Code    uint32
}

func (e *CommandError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error: %s (0x%x)", e.Command, e.Message, e.Code)
	}
	return fmt.Sprintf("%s error: %s", e.Command, e.Message)
}

// Status returns the HAL status code the daemon reported
func (e *CommandError) Status() routing.Status {
	return routing.Status(e.Code)
}

// SendCommand sends a command and returns the response
func (c *SocketClient) SendCommand(cmd string) (*protocol.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return nil, fmt.Errorf("no response received")
	}

	var response protocol.Response
	if err := json.Unmarshal(scanner.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &response, nil
}

func (c *SocketClient) call(name, cmd string) (*protocol.Response, error) {
	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &CommandError{Command: name, Message: resp.Error, Code: resp.Code}
	}
	return resp, nil
}

// decodeField re-decodes one response field into out
func decodeField(resp *protocol.Response, key string, out interface{}) error {
	value, ok := resp.Data[key]
	if !ok {
		return fmt.Errorf("%s not found in response", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return nil
}

// GetStatus gets the current routing state
func (c *SocketClient) GetStatus() (*protocol.Status, error) {
	resp, err := c.call("status", protocol.CmdStatus)
	if err != nil {
		return nil, err
	}

	var status protocol.Status
	if err := decodeField(resp, "status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UpdateRoute asks the daemon to route devices for role
func (c *SocketClient) UpdateRoute(role string, devices []routing.DeviceInfo) (*protocol.Status, error) {
	cmd := fmt.Sprintf("%s:%s %s", protocol.CmdRoute, role, protocol.FormatDevices(devices))

	resp, err := c.call("route", cmd)
	if err != nil {
		return nil, err
	}

	var status protocol.Status
	if err := decodeField(resp, "status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UpdateRouteOption sends a routing option
func (c *SocketClient) UpdateRouteOption(opt routing.RouteOption) error {
	cmd := fmt.Sprintf("%s:%s %s %d", protocol.CmdOption, opt.Role, opt.Name, opt.Value)
	_, err := c.call("option", cmd)
	return err
}

// GetHistory gets the most recent journaled routes
func (c *SocketClient) GetHistory(limit int) ([]storage.RouteRecord, error) {
	cmd := protocol.CmdHistory
	if limit > 0 {
		cmd = fmt.Sprintf("%s:%d", protocol.CmdHistory, limit)
	}

	resp, err := c.call("history", cmd)
	if err != nil {
		return nil, err
	}

	var records []storage.RouteRecord
	if _, ok := resp.Data["routes"]; !ok {
		return records, nil
	}
	if err := decodeField(resp, "routes", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Ping tests the connection
func (c *SocketClient) Ping() error {
	_, err := c.call("ping", protocol.CmdPing)
	return err
}

// IsConnected tests if the daemon is reachable
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}
