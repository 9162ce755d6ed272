// Package ucm provides use-case-manager backends for the router.
package ucm

import (
	"fmt"

	"github.com/dougsko/audiohal/pkg/config"
	"github.com/dougsko/audiohal/pkg/logging"
	"github.com/dougsko/audiohal/pkg/routing"
	"github.com/dougsko/audiohal/pkg/storage"
)

// Call is one SetDevices request seen by a backend.
type Call struct {
	Verb    string   `json:"verb"`
	Devices []string `json:"devices"`
}

// New builds the backend named in cfg, wrapped in a journal when store is set.
func New(cfg *config.Config, store *storage.RouteStore, logger *logging.Logger) (routing.Backend, error) {
	var backend routing.Backend

	switch cfg.UCM.Backend {
	case "mock":
		mock := NewMockBackend(cfg.UCM.Card, logger.Component("ucm"))
		if cfg.UCM.FailCode != 0 {
			mock.FailWith(routing.Status(cfg.UCM.FailCode))
		}
		backend = mock
	default:
		return nil, fmt.Errorf("unsupported ucm backend: %q", cfg.UCM.Backend)
	}

	if store != nil {
		backend = NewJournalBackend(backend, store, logger.Component("journal"))
	}
	return backend, nil
}
