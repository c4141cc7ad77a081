package state

import (
	"errors"
	"fmt"

	"github.com/riskgate-org/riskgate/types"
)

type (
	UnitsWriter interface {
		Add(id types.UnitID, data UnitData) error
		Get(id types.UnitID) (UnitData, error)
		Update(id types.UnitID, data UnitData) error
		Delete(id types.UnitID) error
	}

	Action func(s UnitsWriter) error

	// UpdateFunction is a function for updating the data of an item. Taken in previous UnitData and returns new UnitData.
	UpdateFunction func(data UnitData) (newData UnitData, err error)

	// unitsWriter is the State seen by actions, the caller holds the lock.
	unitsWriter State
)

// AddUnit adds a new unit with given identifier and unit data.
func AddUnit(id types.UnitID, data UnitData) Action {
	return func(s UnitsWriter) error {
		if id == nil {
			return errors.New("id is nil")
		}
		if data == nil {
			return errors.New("unit data is nil")
		}
		if err := s.Add(id, data.Copy()); err != nil {
			return fmt.Errorf("unable to add unit: %w", err)
		}
		return nil
	}
}

// UpdateUnitData changes the data of the item. The update function receives a copy of the current data.
func UpdateUnitData(id types.UnitID, f UpdateFunction) Action {
	return func(s UnitsWriter) error {
		if f == nil {
			return errors.New("update function is nil")
		}
		data, err := s.Get(id)
		if err != nil {
			return fmt.Errorf("failed to get unit: %w", err)
		}
		newData, err := f(data.Copy())
		if err != nil {
			return fmt.Errorf("unable to update unit data: %w", err)
		}
		if err = s.Update(id, newData); err != nil {
			return fmt.Errorf("unable to update unit: %w", err)
		}
		return nil
	}
}

// SetUnit creates the unit or replaces the data of an existing unit.
func SetUnit(id types.UnitID, data UnitData) Action {
	return func(s UnitsWriter) error {
		if id == nil {
			return errors.New("id is nil")
		}
		if data == nil {
			return errors.New("unit data is nil")
		}
		_, err := s.Get(id)
		switch {
		case err == nil:
			return s.Update(id, data.Copy())
		case errors.Is(err, ErrUnitNotFound):
			return s.Add(id, data.Copy())
		default:
			return err
		}
	}
}

// DeleteUnit removes the unit from the state.
func DeleteUnit(id types.UnitID) Action {
	return func(s UnitsWriter) error {
		if id == nil {
			return errors.New("id is nil")
		}
		if err := s.Delete(id); err != nil {
			return fmt.Errorf("unable to delete unit: %w", err)
		}
		return nil
	}
}

func (w *unitsWriter) Add(id types.UnitID, data UnitData) error {
	key := string(id)
	if _, ok := w.units[key]; ok {
		return fmt.Errorf("key %s exists", id)
	}
	(*State)(w).record(key)
	w.units[key] = data
	return nil
}

func (w *unitsWriter) Get(id types.UnitID) (UnitData, error) {
	d, ok := w.units[string(id)]
	if !ok {
		return nil, fmt.Errorf("item %s does not exist: %w", id, ErrUnitNotFound)
	}
	return d, nil
}

func (w *unitsWriter) Update(id types.UnitID, data UnitData) error {
	key := string(id)
	if _, ok := w.units[key]; !ok {
		return fmt.Errorf("item %s does not exist: %w", id, ErrUnitNotFound)
	}
	if data == nil {
		return errors.New("unit data is nil")
	}
	(*State)(w).record(key)
	w.units[key] = data
	return nil
}

func (w *unitsWriter) Delete(id types.UnitID) error {
	key := string(id)
	if _, ok := w.units[key]; !ok {
		return fmt.Errorf("item %s does not exist: %w", id, ErrUnitNotFound)
	}
	(*State)(w).record(key)
	delete(w.units, key)
	return nil
}
