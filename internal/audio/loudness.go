package audio

import "math"

// Integrated loudness per ITU-R BS.1770 / EBU R128: K-weighting prefilter,
// 400 ms blocks with 75% overlap, -70 LUFS absolute gate and a relative
// gate 10 LU below the mean of surviving blocks. The filter coefficients
// are the reference values for 48 kHz material, which is the pipeline's
// working rate.

type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

func kWeighting() (*biquad, *biquad) {
	// Stage 1: high-shelf modelling head response.
	shelf := &biquad{
		b0: 1.53512485958697,
		b1: -2.69169618940638,
		b2: 1.19839281085285,
		a1: -1.69065929318241,
		a2: 0.73248077421585,
	}
	// Stage 2: RLB high-pass.
	highpass := &biquad{
		b0: 1.0,
		b1: -2.0,
		b2: 1.0,
		a1: -1.99004745483398,
		a2: 0.99007225036621,
	}
	return shelf, highpass
}

const (
	blockSec     = 0.400
	hopSec       = 0.100
	absoluteGate = -70.0
	relativeGate = -10.0
	lufsOffset   = -0.691
)

// IntegratedLUFS measures gated integrated loudness. A fully silent buffer
// measures -Inf.
func IntegratedLUFS(b *Buffer) float64 {
	if b == nil || len(b.Samples) == 0 || b.SampleRate <= 0 {
		return math.Inf(-1)
	}

	shelf, highpass := kWeighting()
	weighted := make([]float64, len(b.Samples))
	for i, s := range b.Samples {
		weighted[i] = highpass.process(shelf.process(s))
	}

	blockLen := int(blockSec * float64(b.SampleRate))
	hopLen := int(hopSec * float64(b.SampleRate))
	if blockLen <= 0 || hopLen <= 0 {
		return math.Inf(-1)
	}
	if len(weighted) < blockLen {
		// Short input: measure it as a single block.
		blockLen = len(weighted)
	}

	var blocks []float64
	for start := 0; start+blockLen <= len(weighted); start += hopLen {
		var sumSq float64
		for _, s := range weighted[start : start+blockLen] {
			sumSq += s * s
		}
		blocks = append(blocks, sumSq/float64(blockLen))
	}
	if len(blocks) == 0 {
		return math.Inf(-1)
	}

	loudness := func(meanSq float64) float64 {
		if meanSq <= 0 {
			return math.Inf(-1)
		}
		return lufsOffset + 10*math.Log10(meanSq)
	}

	// Absolute gate.
	var absSum float64
	var absCount int
	for _, ms := range blocks {
		if loudness(ms) > absoluteGate {
			absSum += ms
			absCount++
		}
	}
	if absCount == 0 {
		return math.Inf(-1)
	}

	// Relative gate 10 LU below the ungated mean.
	threshold := loudness(absSum/float64(absCount)) + relativeGate
	var relSum float64
	var relCount int
	for _, ms := range blocks {
		if l := loudness(ms); l > absoluteGate && l > threshold {
			relSum += ms
			relCount++
		}
	}
	if relCount == 0 {
		return math.Inf(-1)
	}
	return loudness(relSum / float64(relCount))
}

// NormalizeToLUFS measures b and applies the single uniform gain that moves
// integrated loudness onto target. It returns the applied gain in dB. Silent
// input returns ok=false and leaves the buffer untouched.
func NormalizeToLUFS(b *Buffer, target float64) (gainDB float64, ok bool) {
	measured := IntegratedLUFS(b)
	if math.IsInf(measured, -1) {
		return 0, false
	}
	gainDB = target - measured
	ApplyGain(b, gainDB)
	return gainDB, true
}
