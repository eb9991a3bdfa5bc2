package analysis

import "math"

// SignalQuality is a crude SNR score in [0,1] over the trailing quality
// window: |mean|/σ divided by the reference scale. It is 0 when fewer
// samples than the window are available or the window is flat.
func SignalQuality(values []float64, p Params) float64 {
	n := p.QualityWindow()
	if n <= 1 || len(values) < n || p.QualityReference <= 0 {
		return 0
	}
	mean, std := meanStd(values[len(values)-n:])
	if std == 0 {
		return 0
	}
	return clamp01(math.Abs(mean) / std / p.QualityReference)
}
