package isotest

import "github.com/rstms/iso-reader/pkg/encoding"

// Entry serialises a raw SUSP entry.
func Entry(sig string, payload ...byte) []byte {
	return append([]byte{sig[0], sig[1], byte(4 + len(payload)), 1}, payload...)
}

func both32(v uint32) []byte {
	b := encoding.MarshalBothByteOrders32(v)
	return b[:]
}

// SP is the sharing protocol indicator with the given LEN_SKP.
func SP(skip byte) []byte {
	return Entry("SP", 0xBE, 0xEF, skip)
}

// ER is an extension reference.
func ER(id, descriptor, source string) []byte {
	payload := []byte{byte(len(id)), byte(len(descriptor)), byte(len(source)), 1}
	payload = append(payload, id...)
	payload = append(payload, descriptor...)
	payload = append(payload, source...)
	return Entry("ER", payload...)
}

// NM is an alternate name fragment.
func NM(flags byte, name string) []byte {
	return Entry("NM", append([]byte{flags}, name...)...)
}

// PX carries POSIX mode, link count, uid and gid.
func PX(mode, links, uid, gid uint32) []byte {
	var payload []byte
	for _, v := range []uint32{mode, links, uid, gid} {
		payload = append(payload, both32(v)...)
	}
	return Entry("PX", payload...)
}

// PN carries device numbers.
func PN(major, minor uint32) []byte {
	return Entry("PN", append(both32(major), both32(minor)...)...)
}

// CE points at a continuation area.
func CE(block, offset, length uint32) []byte {
	var payload []byte
	for _, v := range []uint32{block, offset, length} {
		payload = append(payload, both32(v)...)
	}
	return Entry("CE", payload...)
}

// ST terminates a system use area.
func ST() []byte {
	return Entry("ST")
}
