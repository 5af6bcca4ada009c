package convert

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"github.com/extrame/xls"
)

const (
	sectorSize     = 512
	miniSectorSize = 64
	sectorEntries  = sectorSize / 4
	headerFATSlots = 109
	endOfChain     = 0xFFFFFFFE
	directorySize  = 128
	sstRecord      = 0x00FC
	// maxLegacyColumns is the column limit of BIFF8 sheets.
	maxLegacyColumns = 256
)

// readLegacyWorkbook reads the first sheet of an XLS (BIFF8) workbook. Compound files without a
// workbook stream, as written for password protected workbooks, and damaged files give
// ErrUnsupportedWorkbook.
func readLegacyWorkbook(data []byte) (rows [][]string, err error) {
	if err := checkCompoundFile(data); err != nil {
		return nil, err
	}
	defer func() {
		if recover() != nil {
			rows, err = nil, ErrUnsupportedWorkbook
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil || wb == nil {
		return nil, ErrUnsupportedWorkbook
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyInput
	}

	// Cells right of the header are never read, so the header row limits the columns.
	width := maxLegacyColumns
	rows = make([][]string, int(sheet.MaxRow)+1)
	for i := range rows {
		row := legacyRow(sheet, i)
		if row != nil {
			rows[i] = legacyCells(row, width)
		}
		if i == 0 {
			width = len(rows[0])
		}
	}
	return rows, nil
}

// legacyRow returns row i of the sheet, or nil if the sheet holds no cell in that row.
func legacyRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// legacyCells returns the first width cells of a row without trailing empty cells.
func legacyCells(row *xls.Row, width int) []string {
	var cells []string
	for c := 0; c < width; c++ {
		cells = append(cells, row.Col(c))
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// compoundFile is the sector layout of an OLE compound file as the xls reader sees it.
type compoundFile struct {
	data     []byte
	fat      []uint32
	miniFAT  []uint32
	sectors  uint32
	cutoff   uint32
	dirStart uint32
}

// checkCompoundFile follows every allocation chain the xls reader follows for a workbook. The
// reader ends the process on a chain that leaves its allocation table and loops forever on a
// cyclic one, so both are rejected here, as are string tables larger than the workbook.
func checkCompoundFile(data []byte) error {
	if len(data) < sectorSize {
		return ErrUnsupportedWorkbook
	}
	le := binary.LittleEndian
	if le.Uint16(data[28:]) != 0xFFFE || le.Uint16(data[30:]) != 9 {
		return ErrUnsupportedWorkbook
	}
	cf := &compoundFile{
		data:     data,
		sectors:  uint32((len(data) - 1) / sectorSize),
		cutoff:   le.Uint32(data[56:]),
		dirStart: le.Uint32(data[48:]),
	}
	if err := cf.readFAT(); err != nil {
		return err
	}

	dir, err := cf.chain(cf.fat, cf.dirStart, cf.sector)
	if err != nil {
		return err
	}
	var book, root []byte
	for off := 0; off+directorySize <= len(dir); off += directorySize {
		entry := dir[off : off+directorySize]
		if entry[66] == 0 {
			break
		}
		switch directoryName(entry) {
		case "Workbook", "Book":
			book = entry
		case "Root Entry":
			root = entry
		}
	}
	if book == nil {
		return ErrUnsupportedWorkbook
	}

	start, size := le.Uint32(book[116:]), le.Uint32(book[120:])
	var stream []byte
	if size < cf.cutoff {
		if root == nil {
			return ErrUnsupportedWorkbook
		}
		var container []byte
		container, err = cf.chain(cf.fat, le.Uint32(root[116:]), cf.sector)
		if err != nil {
			return err
		}
		stream, err = cf.chain(cf.miniFAT, start, func(id uint32) []byte {
			s := make([]byte, miniSectorSize)
			if pos := uint64(id) * miniSectorSize; pos < uint64(len(container)) {
				copy(s, container[pos:])
			}
			return s
		})
	} else {
		stream, err = cf.chain(cf.fat, start, cf.sector)
	}
	if err != nil {
		return err
	}
	return checkStringTable(stream)
}

// readFAT assembles the allocation tables from the header slots, the master table chain and the
// short sector table.
func (cf *compoundFile) readFAT() error {
	le := binary.LittleEndian
	var fatSectors []uint32
	for i := uint32(0); i < min(le.Uint32(cf.data[44:]), headerFATSlots); i++ {
		fatSectors = append(fatSectors, le.Uint32(cf.data[76+4*i:]))
	}
	id := le.Uint32(cf.data[68:])
	for n := uint32(0); id != endOfChain; n++ {
		if n > cf.sectors/(sectorEntries-1)+1 {
			return ErrUnsupportedWorkbook
		}
		s := cf.sector(id)
		for j := 0; j < sectorEntries-1; j++ {
			fatSectors = append(fatSectors, le.Uint32(s[4*j:]))
		}
		id = le.Uint32(s[sectorSize-4:])
	}
	for _, id := range fatSectors {
		s := cf.sector(id)
		for j := 0; j < sectorEntries; j++ {
			cf.fat = append(cf.fat, le.Uint32(s[4*j:]))
		}
	}

	miniSectors := le.Uint32(cf.data[64:])
	miniStart := le.Uint32(cf.data[60:])
	if miniStart == endOfChain {
		return nil
	}
	if miniSectors > cf.sectors {
		return ErrUnsupportedWorkbook
	}
	s := cf.sector(miniStart)
	for i := uint32(0); i < miniSectors; i++ {
		for j := 0; j < sectorEntries-1; j++ {
			cf.miniFAT = append(cf.miniFAT, le.Uint32(s[4*j:]))
		}
	}
	return nil
}

// sector returns the content of a regular sector. Positions wrap at 32 bits and bytes past the
// end of the file read as zero, the same way the xls reader addresses them.
func (cf *compoundFile) sector(id uint32) []byte {
	s := make([]byte, sectorSize)
	pos := uint64(uint32(sectorSize + id*sectorSize))
	if pos < uint64(len(cf.data)) {
		copy(s, cf.data[pos:])
	}
	return s
}

// chain follows an allocation chain through table and returns the content of its sectors.
func (cf *compoundFile) chain(table []uint32, start uint32, read func(uint32) []byte) ([]byte, error) {
	var content []byte
	for id, n := start, 0; id != endOfChain; n++ {
		if id >= uint32(len(table)) || n > len(table) {
			return nil, ErrUnsupportedWorkbook
		}
		content = append(content, read(id)...)
		id = table[id]
	}
	return content, nil
}

// checkStringTable rejects shared string tables that claim more strings than the stream holds.
func checkStringTable(stream []byte) error {
	le := binary.LittleEndian
	for off := 0; off+4 <= len(stream); {
		id, size := le.Uint16(stream[off:]), int(le.Uint16(stream[off+2:]))
		if id == sstRecord && off+12 <= len(stream) && uint64(le.Uint32(stream[off+8:])) > uint64(len(stream)) {
			return ErrUnsupportedWorkbook
		}
		off += 4 + size
	}
	return nil
}

func directoryName(entry []byte) string {
	n := int(binary.LittleEndian.Uint16(entry[64:])) / 2
	if n < 1 || n > 32 {
		return ""
	}
	name := make([]uint16, n-1)
	for i := range name {
		name[i] = binary.LittleEndian.Uint16(entry[2*i:])
	}
	return string(utf16.Decode(name))
}
