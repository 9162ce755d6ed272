package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v2"

	"github.com/dougsko/audiohal/pkg/routing"
)

type deviceRequest struct {
	Type      string `json:"type"`
	Direction string `json:"direction" binding:"required"`
}

type routeRequest struct {
	Role    string          `json:"role"`
	Devices []deviceRequest `json:"devices" binding:"required"`
}

// handleGetStatus returns the routing state and journal statistics
func (d *Daemon) handleGetStatus(c *gin.Context) {
	resp := gin.H{
		"status": d.coreEngine.Status(),
	}

	stats, err := d.coreEngine.JournalStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if stats != nil {
		resp["journal"] = stats
	}

	c.JSON(http.StatusOK, resp)
}

// handleUpdateRoute applies a route update
func (d *Daemon) handleUpdateRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	devices := make([]routing.DeviceInfo, 0, len(req.Devices))
	for _, dr := range req.Devices {
		dir, err := routing.ParseDirection(dr.Direction)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		devices = append(devices, routing.DeviceInfo{Type: dr.Type, Direction: dir})
	}

	status, err := d.coreEngine.UpdateRoute(req.Role, devices)
	if err != nil {
		c.JSON(httpStatusFor(err), gin.H{
			"error":  err.Error(),
			"code":   uint32(routing.StatusOf(err)),
			"status": status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// handleUpdateRouteOption forwards a route option
func (d *Daemon) handleUpdateRouteOption(c *gin.Context) {
	var opt routing.RouteOption
	if err := c.ShouldBindJSON(&opt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := d.coreEngine.UpdateRouteOption(opt); err != nil {
		c.JSON(httpStatusFor(err), gin.H{
			"error": err.Error(),
			"code":  uint32(routing.StatusOf(err)),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"option": opt})
}

// handleGetHistory returns journaled routes
func (d *Daemon) handleGetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	routes, err := d.coreEngine.History(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"routes": routes,
		"count":  len(routes),
	})
}

// handleGetDevices lists the device catalog and accepted tags and roles
func (d *Daemon) handleGetDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"out": routing.Catalog(routing.DirectionOut),
		"in":  routing.Catalog(routing.DirectionIn),
		"tags": []string{
			routing.TagBuiltinSpeaker,
			routing.TagBuiltinReceiver,
			routing.TagAudioJack,
			routing.TagBluetooth,
			routing.TagAux,
			routing.TagHDMI,
			routing.TagBuiltinMic,
		},
		"roles": append([]string{"voip", "reset"}, routing.PlaybackRoles...),
	})
}

// handleGetConfig returns the running configuration with YAML key names
func (d *Daemon) handleGetConfig(c *gin.Context) {
	yamlData, err := yaml.Marshal(d.config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("failed to marshal config: %v", err),
		})
		return
	}

	var yamlConfig interface{}
	if err := yaml.Unmarshal(yamlData, &yamlConfig); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("failed to unmarshal config: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, convertYamlToJson(yamlConfig))
}

// convertYamlToJson converts YAML map[interface{}]interface{} to JSON-compatible map[string]interface{}
func convertYamlToJson(i interface{}) interface{} {
	switch x := i.(type) {
	case map[interface{}]interface{}:
		m2 := map[string]interface{}{}
		for k, v := range x {
			m2[fmt.Sprint(k)] = convertYamlToJson(v)
		}
		return m2
	case []interface{}:
		for i, v := range x {
			x[i] = convertYamlToJson(v)
		}
	}
	return i
}

func httpStatusFor(err error) int {
	var be *routing.BackendError
	switch {
	case errors.Is(err, routing.ErrParameter):
		return http.StatusBadRequest
	case errors.As(err, &be):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEventsWebSocket streams route events to the client
func (d *Daemon) handleEventsWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		d.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := d.coreEngine.Subscribe()
	defer cancel()

	d.log.Infof("route event client connected")

	if err := conn.WriteJSON(gin.H{"type": "status", "status": d.coreEngine.Status()}); err != nil {
		return
	}

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"type": "route", "event": ev}); err != nil {
				d.log.Warnf("websocket write error: %v", err)
				return
			}
		case <-closed:
			d.log.Infof("route event client disconnected")
			return
		case <-d.ctx.Done():
			return
		}
	}
}
