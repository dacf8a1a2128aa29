package item

// Attributes is the arbitrary payload attached to a bundle. Data holds
// flat key/value metadata; Contents holds nested bundles when the item
// kind is itself a container. Two bundles only stack or match if their
// attributes are deeply equal.
type Attributes struct {
	Data     map[string]string `json:"data,omitempty" yaml:"data,omitempty"`
	Contents []Bundle          `json:"contents,omitempty" yaml:"contents,omitempty"`
}

// Bundle is a quantity of a single resource kind plus optional attributes.
type Bundle struct {
	Kind  string      `json:"kind"`
	Count int         `json:"count"`
	Attrs *Attributes `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Empty is the zero bundle, used for vacant container slots.
var Empty = Bundle{}

func (b Bundle) IsEmpty() bool {
	return b.Count <= 0 || b.Kind == ""
}

// WithCount returns a copy of b carrying count units.
func (b Bundle) WithCount(count int) Bundle {
	c := b.Clone()
	c.Count = count
	return c
}

// Clone deep-copies the bundle including nested attribute data.
func (b Bundle) Clone() Bundle {
	c := b
	c.Attrs = b.Attrs.clone()
	return c
}

// SameKindSameAttrs reports whether two bundles hold the same kind with
// deeply equal attributes, ignoring counts. This is the matching rule for
// stacking, removal and post-trade verification.
func SameKindSameAttrs(a, b Bundle) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() && b.IsEmpty()
	}
	if a.Kind != b.Kind {
		return false
	}
	return a.Attrs.equal(b.Attrs)
}

func (a *Attributes) clone() *Attributes {
	if a == nil {
		return nil
	}
	c := &Attributes{}
	if a.Data != nil {
		c.Data = make(map[string]string, len(a.Data))
		for k, v := range a.Data {
			c.Data[k] = v
		}
	}
	if a.Contents != nil {
		c.Contents = make([]Bundle, len(a.Contents))
		for i, inner := range a.Contents {
			c.Contents[i] = inner.Clone()
		}
	}
	return c
}

func (a *Attributes) equal(b *Attributes) bool {
	if a.isBlank() && b.isBlank() {
		return true
	}
	if a.isBlank() || b.isBlank() {
		return false
	}
	if len(a.Data) != len(b.Data) || len(a.Contents) != len(b.Contents) {
		return false
	}
	for k, v := range a.Data {
		if b.Data[k] != v {
			return false
		}
	}
	for i, inner := range a.Contents {
		other := b.Contents[i]
		if inner.Count != other.Count || !SameKindSameAttrs(inner, other) {
			return false
		}
	}
	return true
}

// isBlank treats nil and fully empty attribute sets as equivalent so that
// a bundle parsed with `"attrs": {}` still matches one built without.
func (a *Attributes) isBlank() bool {
	return a == nil || (len(a.Data) == 0 && len(a.Contents) == 0)
}
