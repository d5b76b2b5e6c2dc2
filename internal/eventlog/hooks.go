package eventlog

// RotationHook is called after a rotation erased a segment that still held
// records. minSeq and maxSeq bound the dropped range.
type RotationHook interface {
	EmitDropped(segment int, minSeq, maxSeq uint64)
}

// Observer receives append outcomes and control changes. Optional.
type Observer interface {
	ObserveAppend(bytes int, err error)
	ObserveRotation(segment int)
	ObserveEnabled(enabled bool)
	ObserveProducerDrop()
}

type noopHooks struct{}

func (noopHooks) EmitDropped(int, uint64, uint64) {}
func (noopHooks) ObserveAppend(int, error)        {}
func (noopHooks) ObserveRotation(int)             {}
func (noopHooks) ObserveEnabled(bool)             {}
func (noopHooks) ObserveProducerDrop()            {}
