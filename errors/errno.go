// Package errors defines the error taxonomy for the SD-over-SPI transport and
// the FAT32 directory layer: named error constants in the same spirit as
// POSIX errno codes, plus the packed 16-bit status word used at the
// transport boundary for bit-exact compatibility with the SD SPI protocol.
package errors

import (
	"fmt"
)

// SDFatError is a named, comparable error constant, cheap to compare and
// stable across releases, carrying its own default message.
type SDFatError string

// Transport-level errors, upper byte of the status word (§7).
const ErrR1Error = SDFatError("card returned an R1 response other than ready (0x00)")
const ErrStartTokenTimeout = SDFatError("timed out waiting for the start block token")
const ErrDataResponseTimeout = SDFatError("timed out waiting for the data response token")
const ErrCardBusyTimeout = SDFatError("timed out waiting for the card to leave the busy state")
const ErrEraseBusyTimeout = SDFatError("timed out waiting for erase to complete")
const ErrCRCErrorTokenReceived = SDFatError("card reported a CRC error on the written block")
const ErrWriteErrorTokenReceived = SDFatError("card reported a write error on the written block")
const ErrInvalidDataResponse = SDFatError("data response token did not match any known value")
const ErrSetEraseStartAddrError = SDFatError("card rejected the erase start address")
const ErrSetEraseEndAddrError = SDFatError("card rejected the erase end address")
const ErrEraseError = SDFatError("card rejected the erase command")

// Filesystem-level errors (§7).
const ErrEndOfDirectory = SDFatError("end of directory reached")
const ErrFileNotFound = SDFatError("file not found")
const ErrInvalidFileName = SDFatError("invalid file name")
const ErrInvalidDirName = SDFatError("invalid directory name")
const ErrDirNotFound = SDFatError("directory not found")
const ErrCorruptFATEntry = SDFatError("directory entry chain is corrupt")
const ErrEndOfFile = SDFatError("end of file reached")
const ErrBootSectorNotFound = SDFatError("boot sector not found")
const ErrNotBootSector = SDFatError("sector is not a valid boot sector")
const ErrInvalidBytesPerSector = SDFatError("bytes per sector must be 512")
const ErrInvalidSectorsPerCluster = SDFatError("sectors per cluster must be a power of two in [1, 128]")

func (e SDFatError) Error() string {
	return string(e)
}

func (e SDFatError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e SDFatError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}
