package isotest

import (
	"io/fs"
	"path"
)

// ManifestEntry is what a reader is expected to report for one node.
type ManifestEntry struct {
	Path string
	Dir  bool
	Data []byte
}

// Manifest lists every node below the root in on-disk order, each directory before its children.
func (b *Builder) Manifest() []ManifestEntry {
	var out []ManifestEntry
	var walk func(parent string, n *Node)
	walk = func(parent string, n *Node) {
		for _, c := range n.Children {
			p := path.Join(parent, c.DisplayName(b.RockRidge))
			out = append(out, ManifestEntry{Path: p, Dir: c.Dir, Data: c.Data})
			if c.Dir {
				walk(p, c)
			}
		}
	}
	walk("/", b.Root)
	return out
}

// Paths returns the manifest paths.
func (b *Builder) Paths() []string {
	var out []string
	for _, e := range b.Manifest() {
		out = append(out, e.Path)
	}
	return out
}

// GetFileAndFolderCounts counts directories and files in a listing.
func GetFileAndFolderCounts[T fs.FileInfo](entries []T) (folderCount, fileCount int) {
	for _, e := range entries {
		if e.IsDir() {
			folderCount++
		} else {
			fileCount++
		}
	}
	return folderCount, fileCount
}

// Scenario is the reference layout: root -> BOOT/ -> GRUB.CFG, a 37 byte file at block 30.
func Scenario() *Builder {
	return &Builder{
		SystemID:       "LINUX",
		VolumeID:       "SCENARIO",
		FirstFileBlock: 30,
		Root: Dir("",
			Dir("BOOT",
				File("GRUB.CFG;1", []byte("set default=0\nset timeout=10\nmenu xy\n")),
			),
		),
	}
}

// RockRidgeScenario exercises long names split across NM entries, PX and PN entries, a continuation area
// and a non-zero SUSP skip offset.
func RockRidgeScenario() *Builder {
	null := &Node{Name: "NULL.;1", RRName: "null", Mode: 0o20666, Device: &[2]uint32{1, 3}}
	cont := &Node{
		Name:                 "CONT.TXT;1",
		RRName:               "continuation-area.txt",
		RRNameSplit:          13,
		RRNameInContinuation: true,
		Mode:                 0o100644,
		Data:                 []byte("continued\n"),
	}

	return &Builder{
		SystemID:       "LINUX",
		VolumeID:       "ROCKRIDGE",
		RockRidge:      true,
		SkipOffset:     1,
		BootRecord:     true,
		FirstFileBlock: 40,
		Root: Dir("",
			&Node{Name: "ISOLINUX", Dir: true, RRName: "isolinux", Mode: 0o40755, Children: []*Node{
				{Name: "ISOLINUX.CFG;1", RRName: "isolinux.cfg", Mode: 0o100644, Data: []byte("default vesamenu.c32\n")},
				{Name: "VMLINUZ.;1", RRName: "vmlinuz-generic-kernel", RRNameSplit: 8, Mode: 0o100755, Data: make([]byte, 5000)},
			}},
			&Node{Name: "DEV", Dir: true, RRName: "dev", Mode: 0o40755, Children: []*Node{null}},
			cont,
			&Node{Name: "README.;1", RRName: "README.md", Mode: 0o100644, Data: []byte("# readme\n")},
		),
	}
}
