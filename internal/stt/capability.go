package stt

// Capability says whether a recognition facility exists, and carries it if so.
type Capability struct {
	rec Recognizer
}

func Available(rec Recognizer) Capability {
	return Capability{rec: rec}
}

func Unavailable() Capability {
	return Capability{}
}

func (c Capability) Recognizer() (Recognizer, bool) {
	return c.rec, c.rec != nil
}
