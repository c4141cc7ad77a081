package state

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/riskgate-org/riskgate/types"
)

var ErrUnitNotFound = errors.New("not found")

type (
	// State keeps track of units and calculates the state root hash.
	//
	// State can be changed by calling Apply function with one or more Action function. Savepoint method can be used
	// to add a special marker to the state that allows all actions that are executed after savepoint was established
	// to be rolled back. In the other words, savepoint lets you roll back part of the state changes instead of the
	// entire state. Calling a Commit method commits and releases all savepoints.
	State struct {
		mutex         sync.RWMutex
		hashAlgorithm crypto.Hash
		committed     map[string]UnitData
		units         map[string]UnitData

		// journals[0] holds changes made since the last commit, every
		// savepoint pushes a new journal on top of it.
		journals [][]change
	}

	// UnitData is the typed content of a unit, owned by the module which created it.
	UnitData interface {
		Copy() UnitData
	}

	// UnitDataConstructor is a function that constructs an empty UnitData structure based on UnitID
	UnitDataConstructor func(types.UnitID) (UnitData, error)

	change struct {
		id string
		// prev is nil when the unit did not exist before the change
		prev UnitData
	}

	Options struct {
		hashAlgorithm crypto.Hash
	}

	Option func(o *Options)
)

func WithHashAlgorithm(hashAlgorithm crypto.Hash) Option {
	return func(o *Options) {
		o.hashAlgorithm = hashAlgorithm
	}
}

func loadOptions(opts ...Option) *Options {
	options := &Options{
		hashAlgorithm: crypto.SHA256,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func NewEmptyState(opts ...Option) *State {
	options := loadOptions(opts...)
	return &State{
		hashAlgorithm: options.hashAlgorithm,
		committed:     make(map[string]UnitData),
		units:         make(map[string]UnitData),
		journals:      [][]change{nil},
	}
}

func NewRecoveredState(stateData io.Reader, udc UnitDataConstructor, opts ...Option) (*State, *Header, error) {
	if stateData == nil {
		return nil, nil, fmt.Errorf("reader is nil")
	}
	if udc == nil {
		return nil, nil, fmt.Errorf("unit data constructor is nil")
	}
	return readState(stateData, udc, opts...)
}

// Clone returns a copy of the state, uncommitted changes are included but
// can not be rolled back in the clone.
func (s *State) Clone() *State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return &State{
		hashAlgorithm: s.hashAlgorithm,
		committed:     copyUnits(s.committed),
		units:         copyUnits(s.units),
		journals:      [][]change{nil},
	}
}

// GetUnit returns a copy of the unit data. When "committed" is true the
// data is read from the last committed state.
func (s *State) GetUnit(id types.UnitID, committed bool) (UnitData, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	units := s.units
	if committed {
		units = s.committed
	}
	d, ok := units[string(id)]
	if !ok {
		return nil, fmt.Errorf("item %s does not exist: %w", id, ErrUnitNotFound)
	}
	return d.Copy(), nil
}

// Apply applies given actions to the state. All Action functions are executed together as a single atomic operation. If
// any of the Action functions returns an error all previous state changes made by any of the action function will be
// reverted.
func (s *State) Apply(actions ...Action) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := s.createSavepoint()
	for _, action := range actions {
		if err := action((*unitsWriter)(s)); err != nil {
			s.rollbackToSavepoint(id)
			return err
		}
	}
	s.releaseToSavepoint(id)
	return nil
}

// Commit makes all the changes permanent and releases all savepoints.
func (s *State) Commit() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.committed = copyUnits(s.units)
	s.journals = [][]change{nil}
}

// Revert rolls back all changes made to the state since the last commit.
func (s *State) Revert() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.units = copyUnits(s.committed)
	s.journals = [][]change{nil}
}

// Savepoint creates a new savepoint and returns an id of the savepoint. Use RollbackToSavepoint to roll back all
// changes made after calling Savepoint method. Use ReleaseToSavepoint to save all changes made to the state.
func (s *State) Savepoint() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.createSavepoint()
}

// RollbackToSavepoint destroys savepoints without keeping the changes in the state. All actions that were executed
// after the savepoint was established are rolled back, restoring the state to what it was at the time of the savepoint.
func (s *State) RollbackToSavepoint(id int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rollbackToSavepoint(id)
}

// ReleaseToSavepoint destroys savepoints, keeping all state changes made after it was created. If a savepoint with
// given id does not exist then this method does nothing.
func (s *State) ReleaseToSavepoint(id int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.releaseToSavepoint(id)
}

// IsCommitted returns true when there are no changes since the last commit.
func (s *State) IsCommitted() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.journals) == 1 && len(s.journals[0]) == 0
}

// CalculateRoot returns the root hash of the current state: hash over unit
// identifiers and CBOR encoded unit data in identifier order. Empty state
// has nil root.
func (s *State) CalculateRoot() ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.root(s.units)
}

// CommittedRoot returns the root hash of the last committed state.
func (s *State) CommittedRoot() ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.root(s.committed)
}

func (s *State) root(units map[string]UnitData) ([]byte, error) {
	if len(units) == 0 {
		return nil, nil
	}
	hasher := s.hashAlgorithm.New()
	for _, id := range sortedIDs(units) {
		data, err := types.Cbor.Marshal(units[id])
		if err != nil {
			return nil, fmt.Errorf("encoding unit %X: %w", id, err)
		}
		hasher.Write([]byte(id))
		hasher.Write(data)
	}
	return hasher.Sum(nil), nil
}

// UnitCount returns the number of units in the current state.
func (s *State) UnitCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.units)
}

func (s *State) HashAlgorithm() crypto.Hash {
	return s.hashAlgorithm
}

/*
Traverse calls "fn" for every unit of given type in identifier order. Traversal
stops on the first error which is returned.
*/
func (s *State) Traverse(typePart byte, committed bool, fn func(id types.UnitID, data UnitData) error) error {
	s.mutex.RLock()
	units := s.units
	if committed {
		units = s.committed
	}
	var ids []string
	for id := range units {
		if types.UnitID(id).HasType(typePart) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	data := make([]UnitData, len(ids))
	for i, id := range ids {
		data[i] = units[id].Copy()
	}
	s.mutex.RUnlock()

	for i, id := range ids {
		if err := fn(types.UnitID(id), data[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) createSavepoint() int {
	s.journals = append(s.journals, nil)
	return len(s.journals) - 1
}

func (s *State) rollbackToSavepoint(id int) {
	if id <= 0 || id >= len(s.journals) {
		return
	}
	for i := len(s.journals) - 1; i >= id; i-- {
		j := s.journals[i]
		for k := len(j) - 1; k >= 0; k-- {
			c := j[k]
			if c.prev == nil {
				delete(s.units, c.id)
			} else {
				s.units[c.id] = c.prev
			}
		}
	}
	s.journals = s.journals[:id]
}

func (s *State) releaseToSavepoint(id int) {
	if id <= 0 || id >= len(s.journals) {
		return
	}
	for i := id; i < len(s.journals); i++ {
		s.journals[id-1] = append(s.journals[id-1], s.journals[i]...)
	}
	s.journals = s.journals[:id]
}

func (s *State) record(id string) {
	top := len(s.journals) - 1
	s.journals[top] = append(s.journals[top], change{id: id, prev: s.units[id]})
}

func copyUnits(src map[string]UnitData) map[string]UnitData {
	dst := make(map[string]UnitData, len(src))
	for k, v := range src {
		dst[k] = v.Copy()
	}
	return dst
}

func sortedIDs(units map[string]UnitData) []string {
	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare([]byte(ids[i]), []byte(ids[j])) < 0 })
	return ids
}
