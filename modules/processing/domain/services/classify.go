package services

import "github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"

// DefaultClassifier adapts perrors.ClassifyTransport — the shared
// transport-error classification used by both the Transcoder and STT
// clients — into the Classifier shape RunWithinBudget expects. Every step
// that wraps an external call in the Retry Driver uses this unless it has a
// reason to classify differently.
func DefaultClassifier(err error) Classification {
	retry, sleep := perrors.ClassifyTransport(err)
	return Classification{Retry: retry, Sleep: sleep}
}
