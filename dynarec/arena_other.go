//go:build !unix

package dynarec

import "github.com/pkg/errors"

const arenaSupported = false

type arena struct{}

func newArena(int) (*arena, error) {
	return nil, errors.New("executable code arena not supported on this host")
}

func (a *arena) alloc([]byte) (extent, uintptr, error) { return extent{}, 0, errArenaFull }
func (a *arena) release(extent)                        {}
func (a *arena) reset()                                {}
func (a *arena) inUse() int                            { return 0 }
func (a *arena) close() error                          { return nil }
