package snowflake

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

// Epoch is the first millisecond of 2015, the zero point of the service's ids.
const Epoch int64 = 1420070400000

const (
	workerBits   = 10
	sequenceBits = 12
	timeShift    = workerBits + sequenceBits
	maxWorker    = 1<<workerBits - 1
	sequenceMask = 1<<sequenceBits - 1
)

var ErrWorkerRange = errors.New("worker id out of range")

// Generator mints nonces that sort by creation time. When a millisecond's
// sequence runs out it borrows the next millisecond instead of failing.
type Generator struct {
	mutex    sync.Mutex
	worker   int64
	last     int64
	sequence int64
	now      func() time.Time
}

func NewGenerator(worker int64) (*Generator, error) {
	if worker < 0 || worker > maxWorker {
		return nil, ErrWorkerRange
	}
	return &Generator{worker: worker, now: time.Now}, nil
}

func (g *Generator) Next() int64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	ms := g.now().UnixMilli() - Epoch
	if ms < g.last {
		ms = g.last
	}
	if ms == g.last {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			ms++
		}
	} else {
		g.sequence = 0
	}
	g.last = ms

	return ms<<timeShift | g.worker<<sequenceBits | g.sequence
}

var nonces = &Generator{now: time.Now}

// Setup sets the worker bits of nonces minted by Nonce.
func Setup(worker int64) error {
	g, err := NewGenerator(worker)
	if err != nil {
		return err
	}
	nonces.mutex.Lock()
	nonces.worker = g.worker
	nonces.mutex.Unlock()
	return nil
}

// Nonce returns a locally unique id for an outbound message.
func Nonce() string {
	return strconv.FormatInt(nonces.Next(), 10)
}

func Time(id int64) time.Time {
	return time.UnixMilli(id>>timeShift + Epoch)
}
