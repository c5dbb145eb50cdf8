package graph

// Source renders one block of mono samples, adding into dst.
type Source interface {
	Render(dst []float32)
}

// Bus is the head input of the graph. Voices connect here; the graph sums
// every connected source once per block. A Bus is only touched from the
// processing context.
type Bus struct {
	sources []Source
}

// Connect adds src to the bus. Connecting the same source twice is a no-op.
func (b *Bus) Connect(src Source) {
	for _, s := range b.sources {
		if s == src {
			return
		}
	}
	b.sources = append(b.sources, src)
}

// Disconnect removes src and reports whether it was connected.
func (b *Bus) Disconnect(src Source) bool {
	for i, s := range b.sources {
		if s == src {
			last := len(b.sources) - 1
			copy(b.sources[i:], b.sources[i+1:])
			b.sources[last] = nil
			b.sources = b.sources[:last]
			return true
		}
	}
	return false
}

// Connected reports whether src is wired into the bus.
func (b *Bus) Connected(src Source) bool {
	for _, s := range b.sources {
		if s == src {
			return true
		}
	}
	return false
}

// Len returns the number of connected sources.
func (b *Bus) Len() int { return len(b.sources) }

// Render zeroes dst and mixes every connected source into it.
func (b *Bus) Render(dst []float32) {
	clear(dst)
	for _, s := range b.sources {
		s.Render(dst)
	}
}

func (b *Bus) disconnectAll() {
	clear(b.sources)
	b.sources = b.sources[:0]
}
