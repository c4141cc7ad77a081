package logger

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// goroutineID parses the id from the stack header "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	s := bytes.TrimPrefix(buf[:runtime.Stack(buf[:], false)], []byte("goroutine "))
	if i := bytes.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	id, _ := strconv.ParseUint(string(s), 10, 64)
	return id
}

/*
shortCaller keeps the file name with up to two parent directories, ie
"/src/riskgate/txsystem/credit/ledger.go:42" is shortened to
"txsystem/credit/ledger.go:42". Used by the console writer only.
*/
func shortCaller(i any) string {
	c, _ := i.(string)
	cut := len(c)
	for n := 0; n < 3; n++ {
		idx := strings.LastIndexByte(c[:cut], os.PathSeparator)
		if idx < 0 {
			return c
		}
		cut = idx
	}
	return c[cut+1:]
}
