package kafkaconsumer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type seqDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newSeqDedupe(size int) *seqDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &seqDedupe{lru: c}
}

// shouldApply reports whether seq is newer than the last one applied for
// source. Seq 0 is unordered and always applies.
func (d *seqDedupe) shouldApply(source string, seq uint64) bool {
	if seq == 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(source); ok && seq <= last {
		return false
	}
	d.lru.Add(source, seq)
	return true
}

// forget drops the remembered seq so a failed apply can be retried.
func (d *seqDedupe) forget(source string, seq uint64) {
	if seq == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Peek(source); ok && last == seq {
		d.lru.Remove(source)
	}
}
