package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

/*
Log field names. Generally shouldn't be used directly, use appropriate
field constructor function instead.

Only define names here if they are common for multiple modules, module
specific names should be defined in the module.
*/
const (
	ModuleKey = "module"
	GoIDKey   = "go_id"
	ErrorKey  = "err"
	RoundKey  = "round"
	UnitIDKey = "unit_id"
	DataKey   = "data"
	TxTypeKey = "tx_type"
	TxHashKey = "tx_hash"
)

type fields func(e *zerolog.Event)

func (f fields) MarshalZerologObject(e *zerolog.Event) { f(e) }

/*
Module creates sub-logger for the component, should be called once when
the component is created rather than in individual logging calls.
*/
func Module(l *zerolog.Logger, name string) *zerolog.Logger {
	sl := l.With().Str(ModuleKey, name).Logger()
	return &sl
}

/*
UnitID is used to log ID of the primary unit (account, credit line, commit,...)
associated to the logging call.

	log.Debug().EmbedObject(logger.UnitID(id)).Msg("unit updated")
*/
func UnitID(id []byte) zerolog.LogObjectMarshaler {
	return fields(func(e *zerolog.Event) { e.Str(UnitIDKey, fmt.Sprintf("%X", id)) })
}

// Tx adds transaction type and hash fields.
func Tx(txType string, hash []byte) zerolog.LogObjectMarshaler {
	return fields(func(e *zerolog.Event) {
		e.Str(TxTypeKey, txType).Str(TxHashKey, fmt.Sprintf("%X", hash))
	})
}

// Data adds additional data field to the message.
func Data(d any) zerolog.LogObjectMarshaler {
	return fields(func(e *zerolog.Event) { e.Interface(DataKey, d) })
}

func Round(n uint64) zerolog.LogObjectMarshaler {
	return fields(func(e *zerolog.Event) { e.Uint64(RoundKey, n) })
}

func init() {
	zerolog.ErrorFieldName = ErrorKey
}
