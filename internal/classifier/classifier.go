package classifier

import "context"

// Classification is the external classifier's verdict for one frame.
// Contributors maps emotion name to its share in percent.
type Classification struct {
	ScoreDelta   float64
	Contributors map[string]float64
}

type Classifier interface {
	Classify(ctx context.Context, frame []byte) (*Classification, error)
}
