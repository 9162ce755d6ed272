package ucm

import (
	"github.com/dougsko/audiohal/pkg/routing"
	"github.com/dougsko/audiohal/pkg/storage"
)

// RouteRecorder persists applied routes.
type RouteRecorder interface {
	Record(rec *storage.RouteRecord) error
}

// JournalBackend records every SetDevices attempt, successful or not, before
// returning the wrapped backend's result.
type JournalBackend struct {
	next     routing.Backend
	recorder RouteRecorder
	log      routing.Logger
}

// NewJournalBackend wraps next
func NewJournalBackend(next routing.Backend, recorder RouteRecorder, logger routing.Logger) *JournalBackend {
	return &JournalBackend{next: next, recorder: recorder, log: logger}
}

func (j *JournalBackend) Init() error   { return j.next.Init() }
func (j *JournalBackend) Deinit() error { return j.next.Deinit() }

// SetDevices forwards to the wrapped backend and journals the outcome.
// Journal failures are logged and never change the result.
func (j *JournalBackend) SetDevices(verb string, devices []string) error {
	err := j.next.SetDevices(verb, devices)

	rec := &storage.RouteRecord{
		Verb:    verb,
		Devices: append([]string(nil), devices...),
		Status:  uint32(routing.StatusOf(err)),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := j.recorder.Record(rec); jerr != nil && j.log != nil {
		j.log.Warnf("failed to journal route: %v", jerr)
	}

	return err
}
