package rockridge

import "io/fs"

// ContinuationArea locates a SUSP continuation area (CE).
type ContinuationArea struct {
	Block  uint32
	Offset uint32
	Length uint32
}

// Extension is an ER extension reference.
type Extension struct {
	Version    int
	Identifier string
	Descriptor string
	Source     string
}

// Info collects the SUSP and Rock Ridge data decoded from one record's system use area.
type Info struct {
	// HasSP is set when an SP entry with valid check bytes was found. SkipOffset is its LEN_SKP.
	HasSP      bool
	SkipOffset int

	Name    string
	hasName bool
	Current bool
	Parent  bool

	Posix        *RockRidgePosixEntry
	Device       *RockRidgeDeviceEntry
	Continuation *ContinuationArea
	Extensions   []Extension

	// Signatures lists every entry signature in decode order.
	Signatures []string
	// Stopped is set when an ST entry ended decoding.
	Stopped bool
}

// AddName applies an NM entry to the accumulated alternate name.
func (i *Info) AddName(entry *RockRidgeNameEntry) {
	i.hasName = true
	switch {
	case entry.Current:
		i.Current = true
		i.Name = "."
	case entry.Parent:
		i.Parent = true
		i.Name = ".."
	default:
		i.Name += entry.Name
	}
}

// HasName reports whether an NM entry was seen.
func (i *Info) HasName() bool {
	return i != nil && i.hasName
}

// HasRockRidge reports whether any Rock Ridge payload was decoded.
func (i *Info) HasRockRidge() bool {
	if i == nil {
		return false
	}
	if i.hasName || i.Posix != nil || i.Device != nil {
		return true
	}
	for _, e := range i.Extensions {
		if e.Identifier == ROCK_RIDGE_IDENTIFIER {
			return true
		}
	}
	return false
}

// IsDevice reports whether the record describes a device node with a non-zero device number.
func (i *Info) IsDevice() bool {
	return i != nil && i.Device != nil && (i.Device.Major != 0 || i.Device.Minor != 0)
}

// Mode returns the POSIX mode, or zero when no PX entry was present.
func (i *Info) Mode() fs.FileMode {
	if i == nil || i.Posix == nil {
		return 0
	}
	return i.Posix.Mode
}
