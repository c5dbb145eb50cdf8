package effects

import "math"

// Master volume bounds in decibels.
const (
	MinGainDB = -60.0
	MaxGainDB = 0.0
)

// Gain is a stereo gain stage addressed in decibels. Level changes glide
// over a few milliseconds so every signal passing through it shifts
// together without clicks.
type Gain struct {
	db  atomicFloat
	lin smoothed
}

// NewGain creates a gain stage at db decibels, clamped to
// [MinGainDB, MaxGainDB].
func NewGain(sampleRate int, db float64) *Gain {
	g := &Gain{}
	db = ClampDB(db)
	g.db.Store(db)
	g.lin.init(sampleRate, DBToLinear(db))
	return g
}

// ClampDB bounds db to the playable range. NaN maps to the minimum.
func ClampDB(db float64) float64 {
	if math.IsNaN(db) {
		return MinGainDB
	}
	return clamp(db, MinGainDB, MaxGainDB)
}

// DBToLinear converts decibels to an amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// SetDB sets the level in decibels and returns the clamped value.
func (g *Gain) SetDB(db float64) float64 {
	db = ClampDB(db)
	g.db.Store(db)
	g.lin.set(DBToLinear(db))
	return db
}

func (g *Gain) DB() float64 { return g.db.Load() }

func (g *Gain) Process(l, r float32) (float32, float32) {
	k := float32(g.lin.next())
	return l * k, r * k
}

func (g *Gain) Reset() { g.lin.snap() }
