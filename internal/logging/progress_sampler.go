package logging

// ProgressSampler suppresses repetitive render progress logs, emitting only
// when the fraction crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler with bucketSize expressed in
// percent (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress (a fraction in [0,1]) reached a new
// bucket. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(progress float64) bool {
	if s == nil {
		return true
	}
	if progress < 0 {
		return false
	}
	percent := progress * 100
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state when a new job starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
