// Package recorder writes check outcomes to the configured store(s).
//
// Recording is best effort: a store failure is logged and counted, and the
// remaining stores are still attempted. It never changes the verdict of the
// check that produced the result.
package recorder

import (
	"context"
	"errors"
	"log/slog"

	"github.com/use-agent/serpcheck/models"
)

// Inserter is the part of a store the recorder needs.
type Inserter interface {
	Name() string
	Insert(ctx context.Context, r models.TestResult) error
}

// Observer is notified of every insert attempt.
type Observer interface {
	ObserveStoreWrite(store string, err error)
}

// Recorder fans a result out to the stores selected by the storage target.
type Recorder struct {
	stores   []Inserter
	observer Observer
}

// New selects the stores for target. primary or secondary may be nil when
// the target does not select them.
func New(target models.StorageTarget, primary, secondary Inserter, observer Observer) *Recorder {
	var stores []Inserter
	if target.Primary() && primary != nil {
		stores = append(stores, primary)
	}
	if target.Secondary() && secondary != nil {
		stores = append(stores, secondary)
	}
	return &Recorder{stores: stores, observer: observer}
}

// Stores returns the names of the selected stores in write order.
func (r *Recorder) Stores() []string {
	names := make([]string, len(r.stores))
	for i, s := range r.stores {
		names[i] = s.Name()
	}
	return names
}

// Record inserts one row per selected store. It returns the joined store
// errors after every store has been attempted; callers may ignore it.
func (r *Recorder) Record(ctx context.Context, name string, status models.Status, details string) error {
	result := models.TestResult{Name: name, Status: status, Details: details}

	var errs []error
	for _, s := range r.stores {
		slog.Info("saving result", "store", s.Name(), "check", name, "status", status)
		err := s.Insert(ctx, result)
		if r.observer != nil {
			r.observer.ObserveStoreWrite(s.Name(), err)
		}
		if err != nil {
			slog.Error("failed to save result",
				"store", s.Name(),
				"check", name,
				"error", err,
			)
			errs = append(errs, models.NewCollaboratorError("save result to "+s.Name(), err))
			continue
		}
		slog.Info("result saved", "store", s.Name(), "check", name)
	}
	return errors.Join(errs...)
}
