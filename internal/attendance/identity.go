package attendance

// Identity selects how a capture is attributed to a user.
//
// ByExplicitKey looks the roll number up and rejects unknown keys.
// ByArbitrarySelection attributes the capture to the first registered user.
// It performs no identification at all and exists for kiosk demos only; the
// Recorder refuses it unless Options.AllowArbitrarySelection is set.
type Identity struct {
	key       string
	arbitrary bool
}

// ByExplicitKey attributes the capture to the user with the given roll number.
func ByExplicitKey(rollNumber string) Identity {
	return Identity{key: rollNumber}
}

// ByArbitrarySelection attributes the capture to the earliest registered user.
func ByArbitrarySelection() Identity {
	return Identity{arbitrary: true}
}

// Key returns the explicit roll number, if any.
func (i Identity) Key() (string, bool) {
	if i.arbitrary {
		return "", false
	}
	return i.key, true
}

// Arbitrary reports whether this is the demo-only selection strategy.
func (i Identity) Arbitrary() bool { return i.arbitrary }

func (i Identity) String() string {
	if i.arbitrary {
		return "by-arbitrary-selection"
	}
	return "by-explicit-key:" + i.key
}
