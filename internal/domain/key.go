package domain

// keyKind discriminates how an ItemKey compares against line items.
type keyKind int

const (
	keyByID keyKind = iota
	keyByName
)

// ItemKey identifies a line item for merge lookups. It is resolved once at
// the call boundary: additions carrying a product ID compare by ID only,
// additions without one compare by display name only, so every addition
// matches on exactly one axis.
type ItemKey struct {
	kind  keyKind
	value string
}

// KeyByID builds a key that matches items by product ID.
func KeyByID(id string) ItemKey {
	return ItemKey{kind: keyByID, value: id}
}

// KeyByName builds a key that matches items by display name.
func KeyByName(name string) ItemKey {
	return ItemKey{kind: keyByName, value: name}
}

// ResolveKey picks the identity axis for an addition: the product ID when
// present, the name otherwise.
func ResolveKey(id, name string) ItemKey {
	if id != "" {
		return KeyByID(id)
	}
	return KeyByName(name)
}

// Matches reports whether the item carries this identity. Empty values on
// either side never match.
func (k ItemKey) Matches(it LineItem) bool {
	if k.value == "" {
		return false
	}
	switch k.kind {
	case keyByID:
		return it.ID == k.value
	case keyByName:
		return it.Name == k.value
	default:
		return false
	}
}

// String returns the key in a loggable form.
func (k ItemKey) String() string {
	if k.kind == keyByID {
		return "id:" + k.value
	}
	return "name:" + k.value
}
