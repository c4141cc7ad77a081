package keyvaluedb

import (
	"errors"
	"fmt"
	"reflect"
)

// MaxKeySize is the longest key accepted by the stores, it matches the bolt limit.
const MaxKeySize = 32768

var (
	ErrInvalidKey = errors.New("invalid key")
	ErrNilValue   = errors.New("value is nil")
	ErrTxClosed   = errors.New("tx closed")
)

// Codec serializes the values kept in a store. types.Cbor is the codec used
// by the node.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ValidateKey rejects empty and oversized keys.
func ValidateKey(key []byte) error {
	switch {
	case len(key) == 0:
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	case len(key) > MaxKeySize:
		return fmt.Errorf("%w: key length %d exceeds %d", ErrInvalidKey, len(key), MaxKeySize)
	}
	return nil
}

// ValidateEntry checks the key and makes sure the value is not a nil
// interface or a nil pointer.
func ValidateEntry(key []byte, val any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if val == nil {
		return ErrNilValue
	}
	if v := reflect.ValueOf(val); v.Kind() == reflect.Pointer && v.IsNil() {
		return ErrNilValue
	}
	return nil
}
