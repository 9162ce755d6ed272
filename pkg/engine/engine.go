package engine

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dougsko/audiohal/pkg/config"
	"github.com/dougsko/audiohal/pkg/logging"
	"github.com/dougsko/audiohal/pkg/protocol"
	"github.com/dougsko/audiohal/pkg/routing"
	"github.com/dougsko/audiohal/pkg/storage"
	"github.com/dougsko/audiohal/pkg/ucm"
)

// Version is reported in status responses
const Version = "0.1.0-dev"

const component = "engine"

// CoreEngine owns the router and serializes every call into it
type CoreEngine struct {
	config     *config.Config
	socketPath string
	logger     *logging.Logger
	log        *logging.ComponentLogger
	startTime  time.Time

	// routeMu is the single writer lock around router
	routeMu sync.Mutex
	router  *routing.Router
	backend routing.Backend
	store   *storage.RouteStore

	mutex    sync.RWMutex
	running  bool
	listener net.Listener
	wg       sync.WaitGroup

	subMu       sync.Mutex
	subscribers map[chan protocol.RouteEvent]struct{}
}

// Option customizes a CoreEngine
type Option func(*CoreEngine)

// WithBackend replaces the backend that would be built from configuration
func WithBackend(backend routing.Backend) Option {
	return func(e *CoreEngine) { e.backend = backend }
}

// NewCoreEngine creates a new core engine
func NewCoreEngine(cfg *config.Config, socketPath string, logger *logging.Logger, opts ...Option) *CoreEngine {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	e := &CoreEngine{
		config:      cfg,
		socketPath:  socketPath,
		logger:      logger,
		log:         logger.Component(component),
		startTime:   time.Now(),
		subscribers: make(map[chan protocol.RouteEvent]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens the journal and backend, initializes routing and starts the socket server
func (e *CoreEngine) Start() error {
	if e.config.UCM.Journal {
		store, err := storage.NewRouteStore(e.config.Storage.DatabasePath, e.config.Storage.MaxRecords)
		if err != nil {
			return fmt.Errorf("failed to open route journal: %w", err)
		}
		e.store = store
	}

	if e.backend == nil {
		backend, err := ucm.New(e.config, e.store, e.logger)
		if err != nil {
			e.closeStore()
			return fmt.Errorf("failed to create ucm backend: %w", err)
		}
		e.backend = backend
	} else if e.store != nil {
		e.backend = ucm.NewJournalBackend(e.backend, e.store, e.logger.Component("journal"))
	}

	e.router = routing.NewRouter(e.backend, e.logger.Component("routing"))
	if err := e.router.Init(); err != nil {
		e.closeStore()
		return fmt.Errorf("failed to initialize routing: %w", err)
	}

	if e.socketPath != "" {
		os.Remove(e.socketPath)

		listener, err := net.Listen("unix", e.socketPath)
		if err != nil {
			e.router.Deinit()
			e.closeStore()
			return fmt.Errorf("failed to create Unix socket: %w", err)
		}
		e.listener = listener

		if err := os.Chmod(e.socketPath, 0660); err != nil {
			e.log.Warnf("failed to set socket permissions: %v", err)
		}
		e.log.Infof("listening on %s", e.socketPath)
	}

	e.mutex.Lock()
	e.running = true
	e.mutex.Unlock()

	if e.listener != nil {
		e.wg.Add(1)
		go e.acceptConnections()
	}

	return nil
}

// Stop shuts down the socket server and releases the backend
func (e *CoreEngine) Stop() error {
	e.mutex.Lock()
	if !e.running {
		e.mutex.Unlock()
		return nil
	}
	e.running = false
	e.mutex.Unlock()

	if e.listener != nil {
		e.listener.Close()
	}
	e.wg.Wait()

	var err error
	e.routeMu.Lock()
	if derr := e.router.Deinit(); derr != nil {
		err = fmt.Errorf("failed to deinit routing: %w", derr)
	}
	e.routeMu.Unlock()

	e.closeStore()

	e.subMu.Lock()
	for ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, ch)
	}
	e.subMu.Unlock()

	if e.socketPath != "" {
		os.Remove(e.socketPath)
	}
	return err
}

func (e *CoreEngine) closeStore() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warnf("failed to close route journal: %v", err)
		}
		e.store = nil
	}
}

func (e *CoreEngine) isRunning() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running
}

// UpdateRoute routes devices for the role label and returns the resulting state
func (e *CoreEngine) UpdateRoute(label string, devices []routing.DeviceInfo) (protocol.Status, error) {
	if label == "" {
		label = e.config.Routing.DefaultRole
	}

	// Events are published under routeMu so subscribers see them in the
	// order the state changed.
	e.routeMu.Lock()
	defer e.routeMu.Unlock()

	err := e.router.UpdateRoute(routing.NewRouteInfo(label, devices))
	status := e.statusLocked()

	event := protocol.RouteEvent{
		Timestamp: time.Now(),
		Role:      label,
		Success:   err == nil,
		Code:      uint32(routing.StatusOf(err)),
		State:     status,
	}
	for _, d := range devices {
		event.Devices = append(event.Devices, d.Type+"/"+d.Direction.String())
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.publish(event)

	return status, err
}

// UpdateRouteOption forwards a routing option to the router
func (e *CoreEngine) UpdateRouteOption(opt routing.RouteOption) error {
	e.routeMu.Lock()
	defer e.routeMu.Unlock()
	return e.router.UpdateRouteOption(opt)
}

// Status returns the current routing state
func (e *CoreEngine) Status() protocol.Status {
	e.routeMu.Lock()
	defer e.routeMu.Unlock()
	return e.statusLocked()
}

func (e *CoreEngine) statusLocked() protocol.Status {
	state := e.router.State()
	return protocol.Status{
		Card:       e.config.UCM.Card,
		ActiveOut:  uint32(state.Out),
		ActiveIn:   uint32(state.In),
		OutDevices: nonNil(state.Names(routing.DirectionOut)),
		InDevices:  nonNil(state.Names(routing.DirectionIn)),
		Mode:       int(state.Mode),
		Verb:       state.Mode.Verb(),
		Uptime:     time.Since(e.startTime).Round(time.Second).String(),
		StartTime:  e.startTime,
		Version:    Version,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// History returns up to limit journaled routes, newest first
func (e *CoreEngine) History(limit int) ([]storage.RouteRecord, error) {
	// A zero query limit means unbounded, so zero is answered here.
	if e.store == nil || limit == 0 {
		return []storage.RouteRecord{}, nil
	}
	return e.store.GetRecentRoutes(limit)
}

// JournalStats returns journal statistics, or nil when the journal is off
func (e *CoreEngine) JournalStats() (*storage.RouteStats, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.GetStats()
}

// Subscribe returns a channel of route events and a function that ends the subscription
func (e *CoreEngine) Subscribe() (<-chan protocol.RouteEvent, func()) {
	ch := make(chan protocol.RouteEvent, 16)

	e.subMu.Lock()
	e.subscribers[ch] = struct{}{}
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			if _, ok := e.subscribers[ch]; ok {
				delete(e.subscribers, ch)
				close(ch)
			}
			e.subMu.Unlock()
		})
	}
}

// publish never blocks; slow subscribers miss events
func (e *CoreEngine) publish(event protocol.RouteEvent) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	for ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			e.log.Warnf("dropping route event for slow subscriber")
		}
	}
}

func (e *CoreEngine) acceptConnections() {
	defer e.wg.Done()

	for {
		conn, err := e.listener.Accept()
		if err != nil {
			if e.isRunning() {
				e.log.Errorf("socket accept error: %v", err)
				continue
			}
			return
		}

		go e.handleConnection(conn)
	}
}

func (e *CoreEngine) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var response *protocol.Response
		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			response = protocol.NewErrorResponse(fmt.Sprintf("parse error: %v", err))
		} else {
			response = e.handleCommand(cmd)
		}
		conn.Write([]byte(response.String() + "\n"))

		if cmd != nil && cmd.Type == protocol.CmdQuit {
			break
		}
	}
}

func (e *CoreEngine) handleCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdStatus:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"status": e.Status(),
		})

	case protocol.CmdRoute:
		return e.handleRoute(cmd)

	case protocol.CmdOption:
		opt, _ := cmd.Args["option"].(routing.RouteOption)
		if err := e.UpdateRouteOption(opt); err != nil {
			return protocol.NewStatusErrorResponse(err)
		}
		return protocol.NewSuccessResponse(map[string]interface{}{"option": opt})

	case protocol.CmdHistory:
		return e.handleHistory(cmd)

	case protocol.CmdDevices:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"out": routing.Catalog(routing.DirectionOut),
			"in":  routing.Catalog(routing.DirectionIn),
		})

	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"pong": time.Now().Unix(),
		})

	case protocol.CmdQuit:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"message": "goodbye",
		})

	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

func (e *CoreEngine) handleRoute(cmd *protocol.Command) *protocol.Response {
	role, _ := cmd.Args["role"].(string)
	devices, _ := cmd.Args["devices"].([]routing.DeviceInfo)

	status, err := e.UpdateRoute(role, devices)
	if err != nil {
		resp := protocol.NewStatusErrorResponse(err)
		resp.Data = map[string]interface{}{"status": status}
		return resp
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"status": status})
}

func (e *CoreEngine) handleHistory(cmd *protocol.Command) *protocol.Response {
	limit := 20
	if s, ok := cmd.Args["limit"].(string); ok && s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return protocol.NewErrorResponse(fmt.Sprintf("invalid history limit: %q", s))
		}
		limit = n
	}

	routes, err := e.History(limit)
	if err != nil {
		return protocol.NewErrorResponse(err.Error())
	}
	return protocol.NewSuccessResponse(map[string]interface{}{
		"routes": routes,
		"count":  len(routes),
	})
}
