// Package integrity checks that an image is not truncated.
package integrity

import (
	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/descriptor"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/path"
	"github.com/rstms/iso-reader/pkg/source"
	"github.com/rstms/iso-reader/pkg/tree"
)

// Check compares the end of the last file reachable from the path table with the size of the image.
//
// Path table rows are tried from the last one backwards. For each row the first block of its directory is
// listed: fewer than two records means the structure is broken, exactly two ("." and "..") means the check
// passes without looking at any file. Otherwise the directory is listed in full through its "." record and the
// last plain file decides the result. Rows whose directory holds only subdirectories are passed over.
func Check(pvd *descriptor.PrimaryVolumeDescriptor, r *source.BlockReader, w *tree.Walker, logger logr.Logger) bool {
	if pvd == nil {
		logger.V(logging.DEBUG).Info("No primary volume descriptor, image is not valid")
		return false
	}
	if pvd.PathTableSize == 0 {
		logger.V(logging.DEBUG).Info("Path table is empty, nothing to check")
		return true
	}

	table, err := path.ReadPathTable(r, pvd.LocationOfTypeLPathTable, pvd.PathTableSize, logger)
	if err != nil {
		logger.Error(err, "Failed to read path table")
		return false
	}

	blockSize := r.BlockSize()
	for index := len(table); index >= 1; index-- {
		row := table[index-1]
		items, err := w.ListItems(row.LocationOfExtent, uint32(blockSize))
		if err != nil {
			logger.Error(err, "Failed to list directory", "path", table.FullPath(index))
			return false
		}

		switch {
		case len(items) < 2:
			logger.V(logging.DEBUG).Info("Directory has fewer than two records", "path", table.FullPath(index), "records", len(items))
			return false
		case len(items) == 2:
			return true
		}

		self := items[0]
		items, err = w.ListItems(self.LocationOfExtent, self.DataLength)
		if err != nil {
			logger.Error(err, "Failed to list directory", "path", table.FullPath(index))
			return false
		}

		for i := len(items) - 1; i >= 0; i-- {
			item := items[i]
			if item.IsDirectory() {
				continue
			}
			end := item.EndOffset(blockSize)
			logger.V(logging.DEBUG).Info("Checking last file extent", "path", table.FullPath(index), "name", item.Name,
				"end", end, "size", r.Size())
			return r.Size() >= end
		}
	}
	return true
}
