package scene

import (
	"errors"
	"fmt"
	"sync"
)

type BufferKind uint8

const (
	PositionBuffer BufferKind = iota
	NormalBuffer
	IndexBuffer
	LineBuffer
	MaterialBlock
)

func (k BufferKind) String() string {
	return [...]string{"Position", "Normal", "Index", "Line", "Material"}[k]
}

// BufferDesc describes one device allocation.
type BufferDesc struct {
	Label string
	Kind  BufferKind
	Size  int // bytes
}

// Resource is a device allocation that must be released explicitly.
type Resource interface {
	Desc() BufferDesc
	Release() error
}

// Device allocates render resources. Implementations wrap a GPU API; the
// Manager never relies on garbage collection to free them.
type Device interface {
	NewBuffer(desc BufferDesc) (Resource, error)
}

var ErrAlreadyReleased = errors.New("resource already released")

// MemoryDevice is a headless Device that only accounts for allocations.
type MemoryDevice struct {
	mu        sync.Mutex
	nextID    uint64
	live      map[uint64]BufferDesc
	allocated int
	released  int
	liveBytes int
	// FailAfter, when positive, makes allocation number FailAfter+1 onwards
	// fail; used to exercise partial-allocation cleanup.
	FailAfter int
}

func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{live: make(map[uint64]BufferDesc)}
}

func (d *MemoryDevice) NewBuffer(desc BufferDesc) (Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAfter > 0 && d.allocated >= d.FailAfter {
		return nil, fmt.Errorf("allocating %s buffer %q: device out of memory", desc.Kind, desc.Label)
	}
	d.nextID++
	d.live[d.nextID] = desc
	d.allocated++
	d.liveBytes += desc.Size
	return &memoryResource{dev: d, id: d.nextID, desc: desc}, nil
}

// Live is the number of allocations not yet released.
func (d *MemoryDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// LiveBytes sums the sizes of the live allocations.
func (d *MemoryDevice) LiveBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveBytes
}

// Counts returns the total number of allocations and releases so far.
func (d *MemoryDevice) Counts() (allocated, released int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated, d.released
}

func (d *MemoryDevice) release(id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.live[id]
	if !ok {
		return ErrAlreadyReleased
	}
	delete(d.live, id)
	d.released++
	d.liveBytes -= desc.Size
	return nil
}

type memoryResource struct {
	dev  *MemoryDevice
	id   uint64
	desc BufferDesc
}

func (r *memoryResource) Desc() BufferDesc { return r.desc }

func (r *memoryResource) Release() error {
	if err := r.dev.release(r.id); err != nil {
		return fmt.Errorf("%s buffer %q: %w", r.desc.Kind, r.desc.Label, err)
	}
	return nil
}
