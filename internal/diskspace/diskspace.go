// Package diskspace checks free space before the run writes its outputs.
package diskspace

import (
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
)

// Ensure returns a system-resource error when the filesystem holding dir has
// fewer than need bytes available to an unprivileged user.
func Ensure(dir string, need uint64) error {
	free, err := Free(dir)
	if err != nil {
		return errors.New(err).
			Component("diskspace").
			Category(errors.CategorySystem).
			Context("operation", "statfs").
			Build()
	}
	if free < need {
		return errors.Newf("insufficient disk space: %d bytes free, %d needed", free, need).
			Component("diskspace").
			Category(errors.CategorySystem).
			Context("free_bytes", free).
			Context("needed_bytes", need).
			Build()
	}
	return nil
}
