// Package metrics provides constants used across metric definitions.
package metrics

// Operation names recorded through Recorder.
const (
	// OpDecode is decoding and resampling one audio file.
	OpDecode = "decode"
	// OpExtract is computing the mel spectrogram of a manifest.
	OpExtract = "extract"
	// OpModelLoad is building the backbone.
	OpModelLoad = "model_load"
	// OpTrainBatch is one forward, backward and optimiser step.
	OpTrainBatch = "train_batch"
	// OpValidate is one full validation pass.
	OpValidate = "validate"
	// OpPredict is inference over the test set.
	OpPredict = "predict"
	// OpSubmission is writing the submission file.
	OpSubmission = "submission"
	// OpJournal is a run journal write.
	OpJournal = "journal"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~16s range).
	BucketStart1ms = 0.001
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount14 covers 1ms to ~16s with factor 2.
	BucketCount14 = 14
	// BucketCount10 covers 100ms to ~100s with factor 2.
	BucketCount10 = 10
)
