package capture

// Validator inspects captured buffers for known failure signatures. The only
// signature currently implemented is the near-black frame produced when an
// exclusion flag defeats a backend that still reports success.
//
// The mean-intensity cutoff is a heuristic, not proof: legitimately dark
// content (a black wallpaper, a fullscreen terminal) can trip it, which is
// why the threshold is configuration, not a constant.
type Validator struct {
	// Threshold is the mean-intensity cutoff in [0, 255]. Frames whose mean
	// pixel intensity is strictly below it are soft-failed.
	Threshold float64
}

// Check returns nil when the frame passes, or a KindValidation failure that
// converts the apparent success into a soft failure so the chain continues.
func (v Validator) Check(f *Frame) *BackendError {
	if len(f.Pix) == 0 {
		return backendErr(f.Backend, KindValidation, "empty pixel buffer")
	}
	mean := meanIntensity(f.Pix)
	if mean < v.Threshold {
		return backendErr(f.Backend, KindValidation,
			"frame is near-black (mean intensity %.2f < %.2f), probable exclusion-flag defeat", mean, v.Threshold)
	}
	return nil
}

func meanIntensity(pix []byte) float64 {
	if len(pix) == 0 {
		return 0
	}
	var sum uint64
	for _, b := range pix {
		sum += uint64(b)
	}
	return float64(sum) / float64(len(pix))
}
