package keyvaluedb

import "bytes"

// ForEachWithPrefix calls fn for every entry whose key starts with the prefix,
// in ascending key order. Iteration stops when fn returns false or an error.
func ForEachWithPrefix(db Iterable, prefix []byte, fn func(key []byte, it Iterator) (bool, error)) error {
	return ForEachFrom(db, prefix, prefix, fn)
}

// ForEachFrom is like ForEachWithPrefix but starts from the first key which
// is equal or greater than "start".
func ForEachFrom(db Iterable, prefix, start []byte, fn func(key []byte, it Iterator) (bool, error)) (err error) {
	it := db.Find(start)
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()
	for ; it.Valid() && bytes.HasPrefix(it.Key(), prefix); it.Next() {
		more, err := fn(it.Key(), it)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
