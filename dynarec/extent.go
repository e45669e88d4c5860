package dynarec

import "github.com/pkg/errors"

const (
	pageSize     = 4096
	extentAlign  = 16
	minArenaSize = 64 << 10
)

var errArenaFull = errors.New("code arena full")

// extent is an allocated range of the code arena.
type extent struct {
	off  int
	size int
}
