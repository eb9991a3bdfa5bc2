package analysis

import "github.com/mirkovicdev/Polar-H10-ECG-Arrythmia-classifier/internal/ring"

// PeakRecord is what survives of an accepted peak after its detection pass.
type PeakRecord struct {
	Time       int64
	Amplitude  float64
	QRSWidthMs float64
}

// DetectionResult is the per-update summary handed to display layers.
type DetectionResult struct {
	PVCCount           int     `json:"pvc_count"`
	TotalBeatsObserved int     `json:"total_beats_observed"`
	DetectedBeatCount  int     `json:"detected_beat_count"`
	HeartRateBPM       int     `json:"heart_rate_bpm"`
	PVCEvents          []Beat  `json:"pvc_events"`
	SignalQuality      float64 `json:"signal_quality"`
}

// Detector is the online beat classification pipeline. It is not safe for
// concurrent use; callers serialise Process and Reset.
type Detector struct {
	p Params

	window     *Window
	finder     *PeakDetector
	peaks      *ring.Buffer[PeakRecord]
	rr         *RRTracker
	morph      *Morphology
	classifier *Classifier
	beats      *ring.Buffer[Beat]

	sinceScan  int
	detected   int
	classified int
	pvcs       int

	values []float64
	times  []int64
}

func NewDetector(p Params) (*Detector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		p:          p,
		window:     NewWindow(p.WindowSize()),
		finder:     NewPeakDetector(p),
		peaks:      ring.New[PeakRecord](p.MaxPeaks),
		rr:         NewRRTracker(p),
		morph:      NewMorphology(p),
		classifier: NewClassifier(p),
		beats:      ring.New[Beat](p.BeatHistorySize),
		values:     make([]float64, 0, p.WindowSize()),
		times:      make([]int64, 0, p.WindowSize()),
	}, nil
}

func (d *Detector) Params() Params { return d.p }

// Process appends one sample and, every DetectEvery samples, runs a
// detection pass. It returns the beats classified by that pass.
func (d *Detector) Process(s Sample) []Beat {
	d.window.Append(s)
	d.sinceScan++
	if d.sinceScan < d.p.DetectEvery {
		return nil
	}
	d.sinceScan = 0
	return d.scan()
}

func (d *Detector) scan() []Beat {
	if d.window.Len() < d.p.MinSamples {
		return nil
	}
	d.values, d.times = d.window.Copy(d.values, d.times)

	last, haveLast := d.peaks.Last()
	found := d.finder.Detect(d.values, d.times, last.Time, haveLast)

	var beats []Beat
	for _, pk := range found {
		if b, ok := d.accept(pk); ok {
			beats = append(beats, b)
		}
	}
	return beats
}

// accept records pk and classifies it when enough RR history exists.
func (d *Detector) accept(pk Peak) (Beat, bool) {
	width := QRSWidth(d.values, pk.Index, d.p)

	prev, havePrev := d.peaks.Last()
	d.peaks.Push(PeakRecord{Time: pk.Time, Amplitude: pk.Amplitude, QRSWidthMs: width})
	horizon := int64(d.p.PeakHorizonSeconds * 1000)
	d.peaks.DropWhile(func(r PeakRecord) bool { return pk.Time-r.Time > horizon })
	d.detected++

	if !havePrev {
		return Beat{}, false
	}
	rrMs := pk.Time - prev.Time
	if rrMs > horizon {
		// signal gap: the previous peak fell out of the ring, so the RR
		// history no longer describes the current rhythm
		d.rr.Reset()
		return Beat{}, false
	}

	baseline, ok := d.rr.Baseline()
	enough := d.rr.Len() >= d.p.MinHistory
	d.rr.Push(rrMs)
	if !ok || !enough || !d.p.Plausible(baseline) {
		return Beat{}, false
	}

	seg, segOK := d.morph.Segment(d.values, pk.Index)
	f := Features{
		RRInterval: float64(rrMs),
		BaselineRR: baseline,
		Amplitude:  pk.Amplitude,
		QRSWidthMs: width,
		Morphology: d.morph.Dissimilarity(seg, segOK),
	}
	label, pathway, confidence := d.classifier.Classify(f)

	b := Beat{
		Timestamp:           pk.Time,
		RRInterval:          rrMs,
		QRSWidthMs:          width,
		Amplitude:           pk.Amplitude,
		MorphologyScore:     f.Morphology,
		Confidence:          confidence,
		Label:               label,
		Pathway:             pathway,
		PercentagePremature: PercentagePremature(f.RRInterval, baseline),
	}
	d.beats.Push(b)
	d.classified++
	if label == PVC {
		d.pvcs++
	}
	if segOK {
		d.morph.Admit(seg, confidence)
	}
	return b, true
}

// Snapshot summarises the detector state.
func (d *Detector) Snapshot() DetectionResult {
	res := DetectionResult{
		PVCCount:           d.pvcs,
		TotalBeatsObserved: d.classified,
		DetectedBeatCount:  d.detected,
		PVCEvents:          []Beat{},
	}
	if baseline, ok := d.rr.Baseline(); ok {
		res.HeartRateBPM = d.p.HeartRate(baseline)
	}

	for i := d.beats.Len() - 1; i >= 0 && len(res.PVCEvents) < d.p.PVCEventLimit; i-- {
		if b := d.beats.At(i); b.Label == PVC {
			res.PVCEvents = append(res.PVCEvents, b)
		}
	}
	// newest first above; callers expect time order
	for i, j := 0, len(res.PVCEvents)-1; i < j; i, j = i+1, j-1 {
		res.PVCEvents[i], res.PVCEvents[j] = res.PVCEvents[j], res.PVCEvents[i]
	}

	d.values, d.times = d.window.Copy(d.values, d.times)
	res.SignalQuality = SignalQuality(d.values, d.p)
	return res
}

// Beats returns the retained classified beats, oldest first.
func (d *Detector) Beats() []Beat { return d.beats.Slice() }

// Peaks returns the retained peak records, oldest first.
func (d *Detector) Peaks() []PeakRecord { return d.peaks.Slice() }

func (d *Detector) PeakCount() int { return d.peaks.Len() }

func (d *Detector) RRCount() int { return d.rr.Len() }

func (d *Detector) TemplateCount() int { return d.morph.Len() }

func (d *Detector) WindowLen() int { return d.window.Len() }

// Reset clears every buffer and counter; the detector then behaves like a
// freshly constructed one.
func (d *Detector) Reset() {
	d.window.Reset()
	d.peaks.Reset()
	d.rr.Reset()
	d.morph.Reset()
	d.beats.Reset()
	d.sinceScan = 0
	d.detected = 0
	d.classified = 0
	d.pvcs = 0
	d.values = d.values[:0]
	d.times = d.times[:0]
}
