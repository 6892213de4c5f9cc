package fatfs

import sdferrors "github.com/avrtools/sdfat32/errors"

const sectorSize = 512

// direntStream iterates the 32-byte directory entries rooted at a first
// cluster, across sector and cluster boundaries (spec §4.D). It owns the
// two 512-byte sector buffers described in spec §3 ("Buffers") for the
// duration of the traversal and discards them on return, per spec §9
// ("Buffer ownership").
type direntStream struct {
	geom    *Geometry
	sectors SectorReader

	cluster         uint32
	sectorInCluster uint8 // 0 .. SectorsPerCluster-1
	currentLBA      uint32
	currentSector   [sectorSize]byte
	nextSector      *[sectorSize]byte // lazily loaded when a chain crosses the boundary
	offset          int               // 0 <= offset < 512, step 32
	ended           bool
}

func newDirentStream(geom *Geometry, sectors SectorReader, firstCluster uint32) (*direntStream, error) {
	s := &direntStream{geom: geom, sectors: sectors, cluster: firstCluster}
	lba := geom.FirstSectorOfCluster(firstCluster)
	if err := sectors.ReadSector(lba, &s.currentSector); err != nil {
		return nil, err
	}
	s.currentLBA = lba
	return s, nil
}

// entryAt reads the rawEntry at logical offset off (0..1023): off < 512 is
// the current sector, off in [512, 1024) is the next sector, loaded and
// cached on first access.
func (s *direntStream) entryAt(off int) (rawEntry, error) {
	if off < sectorSize {
		var e rawEntry
		copy(e[:], s.currentSector[off:off+direntSize])
		return e, nil
	}

	if s.nextSector == nil {
		lba, err := s.nextSectorLBA()
		if err != nil {
			return rawEntry{}, err
		}
		var buf [sectorSize]byte
		if err := s.sectors.ReadSector(lba, &buf); err != nil {
			return rawEntry{}, err
		}
		s.nextSector = &buf
	}

	relOff := off - sectorSize
	var e rawEntry
	copy(e[:], s.nextSector[relOff:relOff+direntSize])
	return e, nil
}

// nextSectorLBA computes the LBA following the current sector: the next
// sector of the same cluster, or the first sector of the next cluster in
// the chain (spec §4.D, correcting spec §9 item 3's `bytesPerSector` bug to
// use `sectorsPerCluster`).
func (s *direntStream) nextSectorLBA() (uint32, error) {
	if s.sectorInCluster < s.geom.SectorsPerCluster-1 {
		return s.currentLBA + 1, nil
	}
	next, err := s.geom.NextCluster(s.sectors, s.cluster)
	if err != nil {
		return 0, err
	}
	if IsEndOfChain(next) {
		return 0, sdferrors.ErrEndOfDirectory
	}
	return s.geom.FirstSectorOfCluster(next), nil
}

// advance rolls the stream's current-sector window forward by one sector,
// consuming the cached nextSector buffer if one was loaded.
func (s *direntStream) advance() error {
	if s.sectorInCluster < s.geom.SectorsPerCluster-1 {
		s.sectorInCluster++
		s.currentLBA++
	} else {
		next, err := s.geom.NextCluster(s.sectors, s.cluster)
		if err != nil {
			return err
		}
		if IsEndOfChain(next) {
			return sdferrors.ErrEndOfDirectory
		}
		s.cluster = next
		s.sectorInCluster = 0
		s.currentLBA = s.geom.FirstSectorOfCluster(next)
	}

	if s.nextSector != nil {
		s.currentSector = *s.nextSector
		s.nextSector = nil
	} else if err := s.sectors.ReadSector(s.currentLBA, &s.currentSector); err != nil {
		return err
	}
	return nil
}

// foundEntry is one yielded short-name entry, with its reassembled long
// name if an LFN chain preceded it.
type foundEntry struct {
	Short    ShortDirent
	LongName string // "" if no LFN chain preceded this entry
}

// Next returns the next live (non-deleted) directory entry, reassembling
// any preceding LFN chain. Returns sdferrors.ErrEndOfDirectory when the
// directory is exhausted (free-entry marker or chain end), and
// sdferrors.ErrCorruptFATEntry if the LFN chain's bookkeeping is impossible.
func (s *direntStream) Next() (foundEntry, error) {
	if s.ended {
		return foundEntry{}, sdferrors.ErrEndOfDirectory
	}

	for {
		if s.offset >= sectorSize {
			if err := s.advance(); err != nil {
				s.ended = true
				return foundEntry{}, err
			}
			s.offset = 0
		}

		entry, err := s.entryAt(s.offset)
		if err != nil {
			s.ended = true
			return foundEntry{}, err
		}

		if entry.isFree() {
			s.ended = true
			return foundEntry{}, sdferrors.ErrEndOfDirectory
		}

		if entry.isDeleted() {
			s.offset += direntSize
			continue
		}

		if !entry.isLFN() {
			short := entry.toShortDirent()
			s.offset += direntSize
			return foundEntry{Short: short}, nil
		}

		return s.readLFNChain()
	}
}

// readLFNChain handles the three span cases from spec §4.D: in-sector,
// boundary (short entry is the first entry of the next sector), and
// crossing (the LFN chain itself straddles the sector boundary).
func (s *direntStream) readLFNChain() (foundEntry, error) {
	k := 0
	{
		first, err := s.entryAt(s.offset)
		if err != nil {
			return foundEntry{}, err
		}
		k = first.ordinal()
	}
	if k <= 0 {
		return foundEntry{}, sdferrors.ErrCorruptFATEntry
	}

	target := s.offset + direntSize*k
	if target < sectorSize {
		// in-sector
	} else if target == sectorSize {
		// boundary
	} else if target < 2*sectorSize {
		// crossing
	} else {
		return foundEntry{}, sdferrors.ErrCorruptFATEntry
	}

	entries := make([]rawEntry, k)
	for i := 0; i < k; i++ {
		e, err := s.entryAt(s.offset + direntSize*i)
		if err != nil {
			return foundEntry{}, err
		}
		entries[i] = e
	}

	shortRaw, err := s.entryAt(target)
	if err != nil {
		return foundEntry{}, err
	}
	if shortRaw.isLFN() || shortRaw.isFree() || shortRaw.isDeleted() {
		return foundEntry{}, sdferrors.ErrCorruptFATEntry
	}

	longName, err := reassembleLongName(entries)
	if err != nil {
		return foundEntry{}, err
	}

	// Advance past the short entry, rolling the sector window if the chain
	// pushed us into the cached next sector.
	newOffset := target + direntSize
	if newOffset <= sectorSize {
		s.offset = newOffset
		if newOffset == sectorSize {
			// Stay put; the next Next() call's sectorSize check triggers
			// advance() which will consume any cached nextSector.
		}
	} else {
		if err := s.advance(); err != nil {
			return foundEntry{}, err
		}
		s.offset = newOffset - sectorSize
	}

	return foundEntry{Short: shortRaw.toShortDirent(), LongName: longName}, nil
}
