// Package pools provides object pooling for allocation-heavy paths in
// the pricing engine.
package pools

import (
	"sync"
)

// Float64SlicePool is a pool of float64 slices sized for simulation
// scratch buffers
type Float64SlicePool struct {
	pool sync.Pool
	size int
}

// NewFloat64SlicePool creates a new Float64SlicePool
func NewFloat64SlicePool(size int) *Float64SlicePool {
	return &Float64SlicePool{
		pool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, size)
			},
		},
		size: size,
	}
}

// Get retrieves an empty float64 slice from the pool
func (p *Float64SlicePool) Get() []float64 {
	return p.pool.Get().([]float64)[:0]
}

// Put returns a float64 slice to the pool. Undersized slices are left
// to the garbage collector.
func (p *Float64SlicePool) Put(f []float64) {
	if cap(f) >= p.size {
		p.pool.Put(f[:0])
	}
}

// ObjectPool is a generic pool for any object
type ObjectPool struct {
	pool sync.Pool
}

// NewObjectPool creates a new ObjectPool with the given factory function
func NewObjectPool(factory func() interface{}) *ObjectPool {
	return &ObjectPool{
		pool: sync.Pool{
			New: factory,
		},
	}
}

// Get retrieves an object from the pool
func (p *ObjectPool) Get() interface{} {
	return p.pool.Get()
}

// Put returns an object to the pool
func (p *ObjectPool) Put(obj interface{}) {
	p.pool.Put(obj)
}
