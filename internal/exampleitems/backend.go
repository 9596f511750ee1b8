// Package exampleitems provides small reference Item implementations used
// by tests and the demo CLI: vec_copy and mock are the literal items the
// framework's own end-to-end scenarios are written against; manifest is a
// file-resource item in the same shape as a real deployment target.
package exampleitems

import "sync"

// VecCopyBackend is the "external system" vec_copy discovers from and
// applies to: a single byte slice guarded by a mutex, standing in for
// whatever real resource a production item would read/write.
type VecCopyBackend struct {
	mu    sync.Mutex
	value []byte
}

// Get returns a copy of the backend's current content.
func (b *VecCopyBackend) Get() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.value...)
}

// Set overwrites the backend's content.
func (b *VecCopyBackend) Set(v []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = append([]byte(nil), v...)
}

// MockBackend is mock's equivalent of VecCopyBackend: a single byte.
type MockBackend struct {
	mu    sync.Mutex
	value uint8
}

// Get returns the backend's current value.
func (b *MockBackend) Get() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set overwrites the backend's value.
func (b *MockBackend) Set(v uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
}
