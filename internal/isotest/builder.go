// Package isotest synthesises small, byte exact ISO9660 images with optional SUSP/Rock Ridge data for tests.
package isotest

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/encoding"
)

const BlockSize = consts.ISO9660_SECTOR_SIZE

// RecordTime is the recording time stamped on every directory record.
var RecordTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// Node is a file or directory placed in a synthesised image.
type Node struct {
	// Name is the ISO9660 identifier as recorded, e.g. "GRUB.CFG;1".
	Name     string
	Dir      bool
	Data     []byte
	Children []*Node

	// RRName is written as one NM entry, or two when RRNameSplit is inside the name.
	RRName      string
	RRNameSplit int
	// Mode is written as a PX entry when non-zero.
	Mode uint32
	// Device is written as a PN entry when set.
	Device *[2]uint32
	// SystemUse is appended verbatim after the generated entries.
	SystemUse []byte
	// Continuation is stored in a block of its own and referenced by a CE entry.
	Continuation []byte
	// RRNameInContinuation moves the NM fragment after RRNameSplit into the continuation area.
	RRNameInContinuation bool

	extent  uint32
	size    uint32
	ceBlock uint32
	records [][]byte
}

// Dir returns a directory node.
func Dir(name string, children ...*Node) *Node {
	return &Node{Name: name, Dir: true, Children: children}
}

// File returns a file node.
func File(name string, data []byte) *Node {
	return &Node{Name: name, Data: data}
}

// Extent returns the block the node was placed at by the last Build.
func (n *Node) Extent() uint32 {
	return n.extent
}

// Size returns the recorded data length of the node after Build.
func (n *Node) Size() uint32 {
	return n.size
}

// DisplayName is the name a reader is expected to report for the node.
func (n *Node) DisplayName(rockRidge bool) string {
	if rockRidge && n.RRName != "" {
		return n.RRName
	}
	name := n.Name
	if idx := strings.LastIndex(name, ";"); idx >= 0 {
		name = strings.TrimSuffix(name[:idx], ".")
	}
	return name
}

// Builder lays out an image: descriptors from block 16, the L path table, directory extents, continuation
// areas and finally file data.
type Builder struct {
	SystemID string
	VolumeID string
	Root     *Node

	// RockRidge writes SP and ER entries on the root "." record and Rock Ridge entries on children.
	RockRidge bool
	// SkipOffset is the SP LEN_SKP value; that many pad bytes start every other system use area.
	SkipOffset byte
	// BootRecord adds an El Torito boot record descriptor.
	BootRecord bool
	// NoPathTable records a path table size of zero.
	NoPathTable bool
	// FirstFileBlock is the lowest block file data is placed at.
	FirstFileBlock uint32

	PathTableBlock uint32
	dirs           []*Node
	parents        map[*Node]*Node
}

// Build serialises the image.
func (b *Builder) Build() []byte {
	if b.Root == nil {
		b.Root = Dir("")
	}
	b.Root.Dir = true
	b.collectDirs()

	next := uint32(consts.ISO9660_SYSTEM_AREA_SECTORS)
	pvdBlock := next
	next++
	bootBlock := uint32(0)
	if b.BootRecord {
		bootBlock = next
		next++
	}
	termBlock := next
	next++
	b.PathTableBlock = next
	next++

	b.walk(b.Root, func(n *Node) {
		if n.RRNameInContinuation && n.RRNameSplit > 0 && n.RRNameSplit < len(n.RRName) {
			n.Continuation = append(NM(0x00, n.RRName[n.RRNameSplit:]), ST()...)
		}
	})

	// Record lengths do not depend on extents, so sizes are known before placement.
	for _, d := range b.dirs {
		b.dirRecords(d)
		d.size = uint32(len(packSectors(d.records)))
	}
	for _, d := range b.dirs {
		d.extent = next
		next += blocksFor(d.size)
	}
	b.walk(b.Root, func(n *Node) {
		if len(n.Continuation) > 0 {
			n.ceBlock = next
			next++
		}
	})
	if next < b.FirstFileBlock {
		next = b.FirstFileBlock
	}
	b.walk(b.Root, func(n *Node) {
		if !n.Dir {
			n.extent = next
			n.size = uint32(len(n.Data))
			next += blocksFor(n.size)
		}
	})

	total := next
	img := make([]byte, int(total)*BlockSize)
	block := func(n uint32) []byte { return img[int(n)*BlockSize : int(n+1)*BlockSize] }

	for _, d := range b.dirs {
		b.dirRecords(d)
		copy(img[int(d.extent)*BlockSize:], packSectors(d.records))
	}
	b.walk(b.Root, func(n *Node) {
		if len(n.Continuation) > 0 {
			copy(block(n.ceBlock), n.Continuation)
		}
		if !n.Dir {
			copy(img[int(n.extent)*BlockSize:], n.Data)
		}
	})

	pt := b.pathTable()
	copy(block(b.PathTableBlock), pt)
	ptSize := uint32(len(pt))
	if b.NoPathTable {
		ptSize = 0
	}

	b.primary(block(pvdBlock), total, ptSize)
	if b.BootRecord {
		bootRecord(block(bootBlock))
	}
	terminator(block(termBlock))
	return img
}

func (b *Builder) collectDirs() {
	b.dirs = nil
	b.parents = map[*Node]*Node{b.Root: b.Root}
	queue := []*Node{b.Root}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		b.dirs = append(b.dirs, d)
		for _, c := range d.Children {
			b.parents[c] = d
			if c.Dir {
				queue = append(queue, c)
			}
		}
	}
}

func (b *Builder) walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		b.walk(c, fn)
	}
}

func (b *Builder) dirRecords(d *Node) {
	parent := b.parents[d]
	var dotSU []byte
	if b.RockRidge && d == b.Root {
		dotSU = append(SP(b.SkipOffset), ER("RRIP_1991A", "ROCK RIDGE", "TEST")...)
	}
	d.records = [][]byte{
		DirRecord([]byte{0x00}, d.extent, d.size, 0x02, dotSU),
		DirRecord([]byte{0x01}, parent.extent, parent.size, 0x02, nil),
	}
	for _, c := range d.Children {
		var flags byte
		if c.Dir {
			flags = 0x02
		}
		d.records = append(d.records, DirRecord([]byte(c.Name), c.extent, c.size, flags, b.systemUse(c)))
	}
}

func (b *Builder) systemUse(n *Node) []byte {
	var su []byte
	if b.RockRidge {
		su = append(su, make([]byte, b.SkipOffset)...)
		split := n.RRName != "" && n.RRNameSplit > 0 && n.RRNameSplit < len(n.RRName)
		switch {
		case split && n.RRNameInContinuation:
			su = append(su, NM(0x01, n.RRName[:n.RRNameSplit])...)
		case split:
			su = append(su, NM(0x01, n.RRName[:n.RRNameSplit])...)
			su = append(su, NM(0x00, n.RRName[n.RRNameSplit:])...)
		case n.RRName != "":
			su = append(su, NM(0x00, n.RRName)...)
		}
		if n.Mode != 0 {
			su = append(su, PX(n.Mode, 1, 0, 0)...)
		}
		if n.Device != nil {
			su = append(su, PN(n.Device[0], n.Device[1])...)
		}
		if len(n.Continuation) > 0 {
			su = append(su, CE(n.ceBlock, 0, uint32(len(n.Continuation)))...)
		}
	}
	return append(su, n.SystemUse...)
}

func (b *Builder) pathTable() []byte {
	index := map[*Node]int{}
	var pt []byte
	for i, d := range b.dirs {
		index[d] = i + 1
		ident := []byte{0x00}
		if d != b.Root {
			ident = []byte(d.Name)
		}
		row := make([]byte, 8+len(ident))
		row[0] = byte(len(ident))
		binary.LittleEndian.PutUint32(row[2:6], d.extent)
		binary.LittleEndian.PutUint16(row[6:8], uint16(index[b.parents[d]]))
		copy(row[8:], ident)
		if len(ident)%2 == 1 {
			row = append(row, 0)
		}
		pt = append(pt, row...)
	}
	return pt
}

func (b *Builder) primary(buf []byte, total, ptSize uint32) {
	buf[0] = 1
	copy(buf[1:6], consts.ISO9660_STD_IDENTIFIER)
	buf[6] = 1
	copy(buf[8:40], encoding.MarshalString(b.SystemID, 32))
	copy(buf[40:72], encoding.MarshalString(b.VolumeID, 32))
	putBoth32(buf[80:88], total)
	putBoth16(buf[120:124], 1)
	putBoth16(buf[124:128], 1)
	putBoth16(buf[128:132], BlockSize)
	putBoth32(buf[132:140], ptSize)
	binary.LittleEndian.PutUint32(buf[140:144], b.PathTableBlock)
	copy(buf[consts.ISO9660_ROOT_RECORD_OFFSET:], DirRecord([]byte{0x00}, b.Root.extent, b.Root.size, 0x02, nil))
	for _, off := range []int{190, 318, 446, 574} {
		copy(buf[off:off+128], encoding.MarshalString("", 128))
	}
	created, _ := encoding.MarshalDateTime(RecordTime)
	copy(buf[813:830], created[:])
	copy(buf[830:847], created[:])
	buf[881] = 1
}

func bootRecord(buf []byte) {
	buf[0] = 0
	copy(buf[1:6], consts.ISO9660_STD_IDENTIFIER)
	buf[6] = 1
	copy(buf[7:39], consts.EL_TORITO_BOOT_SYSTEM_ID)
	binary.LittleEndian.PutUint32(buf[71:75], 19)
}

func terminator(buf []byte) {
	buf[0] = 255
	copy(buf[1:6], consts.ISO9660_STD_IDENTIFIER)
	buf[6] = 1
}

// DirRecord serialises one directory record.
func DirRecord(ident []byte, extent, length uint32, flags byte, su []byte) []byte {
	suOff := consts.ISO9660_DIR_RECORD_FIXED_SIZE + len(ident)
	if len(ident)%2 == 0 {
		suOff++
	}
	recLen := suOff + len(su)
	if recLen%2 == 1 {
		recLen++
	}

	rec := make([]byte, recLen)
	rec[0] = byte(recLen)
	putBoth32(rec[2:10], extent)
	putBoth32(rec[10:18], length)
	stamp, _ := encoding.MarshalRecordingDateTime(RecordTime)
	copy(rec[18:25], stamp[:])
	rec[25] = flags
	putBoth16(rec[28:32], 1)
	rec[32] = byte(len(ident))
	copy(rec[33:], ident)
	copy(rec[suOff:], su)
	return rec
}

// packSectors places records back to back without letting one cross a sector boundary.
func packSectors(records [][]byte) []byte {
	var out []byte
	used := 0
	for _, rec := range records {
		if used+len(rec) > BlockSize {
			out = append(out, make([]byte, BlockSize-used)...)
			used = 0
		}
		out = append(out, rec...)
		used += len(rec)
	}
	if used > 0 {
		out = append(out, make([]byte, BlockSize-used)...)
	}
	return out
}

func blocksFor(size uint32) uint32 {
	return (size + BlockSize - 1) / BlockSize
}

func putBoth32(dst []byte, v uint32) {
	b := encoding.MarshalBothByteOrders32(v)
	copy(dst, b[:])
}

func putBoth16(dst []byte, v uint16) {
	b := encoding.MarshalBothByteOrders16(v)
	copy(dst, b[:])
}
