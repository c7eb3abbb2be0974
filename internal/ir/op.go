package ir

import (
	"fmt"
)

// OpKind identifies the operation a move performs.
// The set is closed: every kind has a text name used for persistence,
// scenarios and the JSON record format.
type OpKind int

const (
	// OpUnknown is the zero value and never valid on a record.
	OpUnknown OpKind = iota

	// Permanent kinds.
	OpNormalStart
	OpChooseRecruit
	OpConfirmOneRecruit
	OpConfirmRecruits
	OpPlaceWorker
	OpRetrieveWorkers
	OpDone
	OpResign

	// Ephemeral kinds, only produced during a simultaneous phase.
	OpEphemeralPick
	OpEphemeralDrop
	OpEphemeralChooseRecruit
	OpEphemeralConfirmOneRecruit
	OpEphemeralConfirmRecruits
)

var opNames = map[OpKind]string{
	OpNormalStart:                "NormalStart",
	OpChooseRecruit:              "ChooseRecruit",
	OpConfirmOneRecruit:          "ConfirmOneRecruit",
	OpConfirmRecruits:            "ConfirmRecruits",
	OpPlaceWorker:                "PlaceWorker",
	OpRetrieveWorkers:            "RetrieveWorkers",
	OpDone:                       "Done",
	OpResign:                     "Resign",
	OpEphemeralPick:              "EphemeralPick",
	OpEphemeralDrop:              "EphemeralDrop",
	OpEphemeralChooseRecruit:     "EphemeralChooseRecruit",
	OpEphemeralConfirmOneRecruit: "EphemeralConfirmOneRecruit",
	OpEphemeralConfirmRecruits:   "EphemeralConfirmRecruits",
}

var opsByName = func() map[string]OpKind {
	m := make(map[string]OpKind, len(opNames))
	for k, v := range opNames {
		m[v] = k
	}
	return m
}()

// String returns the text name of the kind.
func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k OpKind) Valid() bool {
	_, ok := opNames[k]
	return ok
}

// IsEphemeral reports whether k may only appear on ephemeral records.
func (k OpKind) IsEphemeral() bool {
	return k >= OpEphemeralPick && k <= OpEphemeralConfirmRecruits
}

// ParseOpKind converts a text name to an OpKind.
func ParseOpKind(name string) (OpKind, error) {
	if k, ok := opsByName[name]; ok {
		return k, nil
	}
	return OpUnknown, fmt.Errorf("unknown operation kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
// JSON and YAML encoders pick this up, so kinds travel by name.
func (k OpKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid operation kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OpKind) UnmarshalText(text []byte) error {
	parsed, err := ParseOpKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
