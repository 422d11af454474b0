package repofakes

import (
	"maps"
	"sync"

	"github.com/jrsteele09/vetflow-console/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo. Failures can be injected to
// exercise storage error paths.
type FakeSessionRepo struct {
	values map[string]string
	lock   sync.RWMutex

	writes    int
	FailWrite error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		values: make(map[string]string),
	}
}

func (r *FakeSessionRepo) Get(key string) (string, bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	v, ok := r.values[key]
	return v, ok, nil
}

func (r *FakeSessionRepo) Upsert(values map[string]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.FailWrite != nil {
		return r.FailWrite
	}
	maps.Copy(r.values, values)
	r.writes++
	return nil
}

func (r *FakeSessionRepo) Delete(keys ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, k := range keys {
		delete(r.values, k)
	}
	r.writes++
	return nil
}

// Snapshot returns a copy of everything stored.
func (r *FakeSessionRepo) Snapshot() map[string]string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return maps.Clone(r.values)
}

// Writes returns how many successful Upsert/Delete calls were made.
func (r *FakeSessionRepo) Writes() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.writes
}
