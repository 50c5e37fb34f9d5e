package hub

import (
	"sync"
)

type Listener func(msgType string, payload any)

const allTypes = "*"

type LocalPubSub struct {
	mutex   sync.RWMutex
	hashMap map[string][]Listener
}

func (ps *LocalPubSub) Setup() {
	ps.hashMap = make(map[string][]Listener)
}

func (ps *LocalPubSub) Subscribe(msgType string, listener Listener) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.hashMap[msgType] = append(ps.hashMap[msgType], listener)
}

func (ps *LocalPubSub) Listeners(msgType string) []Listener {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	listeners := make([]Listener, 0, len(ps.hashMap[msgType])+len(ps.hashMap[allTypes]))
	listeners = append(listeners, ps.hashMap[msgType]...)
	listeners = append(listeners, ps.hashMap[allTypes]...)
	return listeners
}
