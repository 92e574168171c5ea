package audio

// Resample converts a slice of samples from one rate to SampleRate using
// linear interpolation. The spec permits linear resampling for demo use;
// production deployments are expected to swap in a polyphase resampler
// behind the same signature.
func Resample(samples []float32, fromRate int) []float32 {
	if fromRate == SampleRate || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(SampleRate) / float64(fromRate)
	outLen := int(float64(len(samples)) * ratio)
	out := make([]float32, outLen)

	for i := range out {
		srcPos := float64(i) / ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		if idx+1 >= len(samples) {
			out[i] = samples[len(samples)-1]
			continue
		}
		out[i] = samples[idx]*float32(1-frac) + samples[idx+1]*float32(frac)
	}
	return out
}
