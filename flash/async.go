package flash

import "sync"

// Async adapts a blocking NorFlash into an AsyncNorFlash.
//
// Each operation runs on its own goroutine, but operations start and finish
// in submission order: an operation whose caller stopped waiting still
// completes before the next one touches the device.
type Async struct {
	dev NorFlash

	mu   sync.Mutex
	tail chan struct{}
}

// NewAsync wraps dev.
func NewAsync(dev NorFlash) *Async {
	if dev == nil {
		panic("device cannot be nil")
	}
	return &Async{dev: dev}
}

func (a *Async) WriteSize() int { return a.dev.WriteSize() }

func (a *Async) EraseSize() int { return a.dev.EraseSize() }

func (a *Async) Read(offset uint32, buf []byte) <-chan error {
	return a.submit(func() error { return a.dev.Read(offset, buf) })
}

func (a *Async) Write(offset uint32, buf []byte) <-chan error {
	return a.submit(func() error { return a.dev.Write(offset, buf) })
}

func (a *Async) Erase(from, to uint32) <-chan error {
	return a.submit(func() error { return a.dev.Erase(from, to) })
}

// Unwrap returns the wrapped blocking device.
func (a *Async) Unwrap() NorFlash {
	return a.dev
}

func (a *Async) submit(op func() error) <-chan error {
	done := make(chan error, 1)
	finished := make(chan struct{})

	a.mu.Lock()
	prev := a.tail
	a.tail = finished
	a.mu.Unlock()

	go func() {
		defer close(finished)
		if prev != nil {
			<-prev
		}
		done <- op()
	}()

	return done
}
