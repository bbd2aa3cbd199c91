package boundary

import (
	"sync"

	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// slot is the guarded single-file holder behind a Session.
type slot struct {
	mu   sync.Mutex
	file *netcdf.File
}

// with runs fn while holding the lock. The deferred unlock keeps the slot
// usable after fn panics.
func (s *slot) with(fn func(f **netcdf.File)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.file)
}
