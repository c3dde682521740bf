package media

import (
	"math/rand"
	"strconv"
	"sync/atomic"
)

const (
	minGeneratedID = 10000
	maxGeneratedID = 99999 // exclusive
)

// IDSource produces identifiers for handles that were not given one.
type IDSource interface {
	NextID() string
}

// RandomIDs draws uniformly from [10000, 99999). It does not remember what
// it has handed out.
type RandomIDs struct{}

func (RandomIDs) NextID() string {
	return strconv.Itoa(minGeneratedID + rand.Intn(maxGeneratedID-minGeneratedID))
}

// SequentialIDs counts up from 10000 and never repeats within a process.
// The zero value is ready to use and safe for concurrent use.
type SequentialIDs struct {
	n atomic.Int64
}

func (s *SequentialIDs) NextID() string {
	return strconv.FormatInt(minGeneratedID+s.n.Add(1)-1, 10)
}
