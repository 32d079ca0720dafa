package scorer

import "context"

// StubScorer derives a deterministic score from the mean amplitude of the
// waveform. Distinct inputs produce distinct scores, which is what the
// concurrency tests rely on to detect cross-request contamination.
type StubScorer struct {
	// Gain scales the mean amplitude; zero means 1.
	Gain float64
	// Err, when set, is returned by every Score call.
	Err error
}

// Score returns gain * mean(waveform).
func (s *StubScorer) Score(ctx context.Context, waveform []float32) (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	gain := s.Gain
	if gain == 0 {
		gain = 1
	}
	var sum float64
	for _, v := range waveform {
		sum += float64(v)
	}
	score := gain * sum / float64(len(waveform))
	if err := checkScore(score); err != nil {
		return 0, err
	}
	return score, nil
}
