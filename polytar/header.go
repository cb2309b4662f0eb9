package polytar

import (
	"strconv"
	"time"
)

// Deterministic permission/ownership sentinels, per spec.md section 4.1.
// Using fixed values rather than the real filesystem metadata keeps the
// artifact byte-for-byte reproducible across builds.
const (
	sentinelMode  = 0644
	sentinelOwner = 65534 // "nobody"
)

var sentinelOwnerName = "nobody"
var sentinelMtime = time.Unix(0, 0)

// AssignPermissionEncodingMeta writes the fixed mode/uid/gid/mtime/magic/
// version/uname/gname fields that make every header's non-content bytes
// deterministic across runs.
func AssignPermissionEncodingMeta(b *Block) {
	putOctal(b.Mode(), sentinelMode)
	putOctal(b.UID(), sentinelOwner)
	putOctal(b.GID(), sentinelOwner)
	putOctal(b.Mtime(), uint64(sentinelMtime.Unix()))
	b.setUSTARMagic()
	putNulString(b.Uname(), sentinelOwnerName)
	putNulString(b.Gname(), sentinelOwnerName)
}

// AssignAttributes overwrites the fields named by attrs whenever the
// corresponding optional is present. Devmajor/devminor are always
// written since EntryAttributes carries them as required values, not
// optionals. Names exceeding their field's capacity are a programmer
// error: assign_attributes panics with ErrInvalidName rather than
// silently truncating (spec.md section 4.1).
func AssignAttributes(b *Block, attrs EntryAttributes) {
	if attrs.Mtime != nil {
		putOctal(b.Mtime(), uint64(attrs.Mtime.Unix()))
	}
	if attrs.Uname != nil {
		assignNulField(b.Uname(), "uname", *attrs.Uname)
	}
	if attrs.Gname != nil {
		assignNulField(b.Gname(), "gname", *attrs.Gname)
	}
	putOctal(b.Devmajor(), uint64(attrs.Devmajor))
	putOctal(b.Devminor(), uint64(attrs.Devminor))
}

func assignNulField(field []byte, fieldName, value string) {
	if len(value) >= len(field) {
		panic((&ErrInvalidName{Field: fieldName, Value: value}).Error())
	}
	putNulString(field, value)
}

// AssignChecksum fills chksum with ASCII spaces, sums the entire 512-byte
// record, and writes the result back as six octal digits, NUL, space.
// This MUST be the last field assignment before the header is emitted
// (spec.md section 4.1).
func AssignChecksum(b *Block) {
	field := b.Chksum()
	for i := range field {
		field[i] = ' '
	}
	sum := b.ComputeChecksum()
	s := strconv.FormatInt(sum, 8)
	for len(s) < 6 {
		s = "0" + s
	}
	copy(field, s)
	field[6] = 0
	field[7] = ' '
}

// ParseSize decodes the size field: 0 if its first byte is NUL, otherwise
// the NUL-terminated ASCII substring parsed as octal.
func ParseSize(b *Block) (uint64, error) {
	field := b.Size()
	if field[0] == 0 {
		return 0, nil
	}
	s := nulString(field)
	v, err := strconv.ParseUint(s, 8, 64)
	if err != nil {
		return 0, &ErrParseSize{Cause: err}
	}
	return v, nil
}

// EntryAttributesFromHeader decodes mtime/uname/gname/devmajor/devminor from a block,
// the inverse of AssignAttributes. Parse failures are ignored and yield
// the zero value for that field, matching spec.md's
// EntryAttributes::from_header.
func EntryAttributesFromHeader(b *Block) EntryAttributes {
	var attrs EntryAttributes

	if v, err := strconv.ParseInt(nulString(b.Mtime()), 8, 64); err == nil {
		t := time.Unix(v, 0)
		attrs.Mtime = &t
	}
	if u := nulString(b.Uname()); u != "" {
		attrs.Uname = &u
	}
	if g := nulString(b.Gname()); g != "" {
		attrs.Gname = &g
	}
	if v, err := strconv.ParseUint(nulString(b.Devmajor()), 8, 16); err == nil {
		attrs.Devmajor = uint16(v)
	}
	if v, err := strconv.ParseUint(nulString(b.Devminor()), 8, 16); err == nil {
		attrs.Devminor = uint16(v)
	}
	return attrs
}
