package peakload

import "math"

// Bucket is a deduplicated, integer-keyed probability sample.
type Bucket struct {
	K int     `json:"k"`
	P float64 `json:"p"`
}

// discretizer collapses a stream of sample points with non-decreasing
// abscissas onto integer buckets in one pass. Only the most recent bucket is
// ever revisited.
type discretizer struct {
	buckets []Bucket
	// widths[i] is the rounding distance ceil(x)-x recorded for buckets[i].
	widths []float64
}

func (d *discretizer) add(x, p float64) {
	ck := math.Ceil(x)
	cd := ck - x
	k := int(ck)

	n := len(d.buckets)
	if n == 0 {
		d.push(k, p, cd)
		return
	}

	last := n - 1
	prevK := d.buckets[last].K
	if prevK != k {
		// The new sample is closer to the previous key than whatever
		// landed there before; refresh that bucket with it.
		if shrunk := x - float64(prevK); shrunk < d.widths[last] {
			d.widths[last] = shrunk
			d.buckets[last].P = p
		}
		d.push(k, p, cd)
		return
	}

	// Same bucket: the later sample wins.
	d.buckets[last].P = p
	d.widths[last] = cd
}

func (d *discretizer) push(k int, p, width float64) {
	d.buckets = append(d.buckets, Bucket{K: k, P: p})
	d.widths = append(d.widths, width)
}

// result drops buckets whose sample landed exactly on an integer.
func (d *discretizer) result() []Bucket {
	out := d.buckets[:0]
	for i, b := range d.buckets {
		if d.widths[i] > 0 {
			out = append(out, b)
		}
	}
	return out
}

// Discretize converts sample points (ordered by non-decreasing X) into sparse
// buckets with strictly increasing keys.
//
// Each sample lands in bucket ceil(X). When several samples share a bucket
// the last one wins. When a sample opens a new bucket but sits closer to the
// previous key than that bucket's own sample did, the previous bucket takes
// its mass and the smaller rounding distance. Buckets whose rounding distance
// ends up exactly zero are dropped.
func Discretize(points []SamplePoint) []Bucket {
	d := discretizer{
		buckets: make([]Bucket, 0, len(points)),
		widths:  make([]float64, 0, len(points)),
	}
	for _, pt := range points {
		d.add(pt.X, pt.P)
	}
	return d.result()
}

// Buckets samples and discretizes the distribution for rate (rate > 0).
func (c Config) Buckets(rate float64) []Bucket {
	g := c.Grid(rate)
	d := discretizer{
		buckets: make([]Bucket, 0, g.Count),
		widths:  make([]float64, 0, g.Count),
	}
	g.each(rate, d.add)
	return d.result()
}
