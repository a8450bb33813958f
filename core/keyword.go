package core

import "fmt"

// KeywordKind is the vocabulary class of a keyword fact.
// Adding a kind means touching every switch over it.
type KeywordKind int

const (
	KindTradeName KeywordKind = iota + 1
	KindSubstance
	KindDisease
)

// KeywordKinds lists all kinds in indexing order.
var KeywordKinds = []KeywordKind{KindTradeName, KindSubstance, KindDisease}

func (k KeywordKind) String() string {
	switch k {
	case KindTradeName:
		return "trade_name"
	case KindSubstance:
		return "substance"
	case KindDisease:
		return "disease"
	}
	return fmt.Sprintf("KeywordKind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k KeywordKind) Valid() bool {
	switch k {
	case KindTradeName, KindSubstance, KindDisease:
		return true
	}
	return false
}

// ParseKeywordKind parses the wire name of a kind.
func ParseKeywordKind(s string) (KeywordKind, error) {
	switch s {
	case "trade_name":
		return KindTradeName, nil
	case "substance":
		return KindSubstance, nil
	case "disease":
		return KindDisease, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKeywordKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k KeywordKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKeywordKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KeywordKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKeywordKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
