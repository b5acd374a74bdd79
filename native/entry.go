package native

import "time"

// File type bits carried in an entry's mode.
const (
	TypeMask    uint32 = 0o170000
	TypeRegular uint32 = 0o100000
	TypeSymlink uint32 = 0o120000
	TypeSocket  uint32 = 0o140000
	TypeChar    uint32 = 0o020000
	TypeBlock   uint32 = 0o060000
	TypeDir     uint32 = 0o040000
	TypeFIFO    uint32 = 0o010000
)

// Entry is a metadata record describing one item of an archive stream.
type Entry struct {
	atime      time.Time
	mtime      time.Time
	ctime      time.Time
	birthtime  time.Time
	pathname   string
	hardlink   string
	symlink    string
	sourcepath string
	uname      string
	gname      string
	size       int64
	uid        int64
	gid        int64
	dev        uint64
	ino        uint64
	rdev       uint64
	fflagsSet  uint64
	fflagsClr  uint64
	mode       uint32
	nlink      uint32
	sizeSet    bool
	inoSet     bool
	freed      bool
}

// NewEntry allocates an empty metadata record.
func NewEntry() *Entry {
	return &Entry{}
}

// Free releases the record. Calling Free more than once is a no-op.
func (e *Entry) Free() {
	if e.freed {
		return
	}
	e.Clear()
	e.freed = true
}

// Freed reports whether Free has released the record.
func (e *Entry) Freed() bool {
	return e.freed
}

// Clear resets every field.
func (e *Entry) Clear() {
	freed := e.freed
	*e = Entry{}
	e.freed = freed
}

// Clone returns an independent copy of the record.
func (e *Entry) Clone() *Entry {
	c := *e
	c.freed = false
	return &c
}

func (e *Entry) Pathname() string     { return e.pathname }
func (e *Entry) SetPathname(v string) { e.pathname = v }

func (e *Entry) Hardlink() string     { return e.hardlink }
func (e *Entry) SetHardlink(v string) { e.hardlink = v }

func (e *Entry) Symlink() string     { return e.symlink }
func (e *Entry) SetSymlink(v string) { e.symlink = v }

// SetLink sets the symlink target when one is already present, otherwise
// the hardlink target.
func (e *Entry) SetLink(v string) {
	if e.symlink != "" {
		e.symlink = v
		return
	}
	e.hardlink = v
}

func (e *Entry) Sourcepath() string     { return e.sourcepath }
func (e *Entry) SetSourcepath(v string) { e.sourcepath = v }

func (e *Entry) Uname() string     { return e.uname }
func (e *Entry) SetUname(v string) { e.uname = v }

func (e *Entry) Gname() string     { return e.gname }
func (e *Entry) SetGname(v string) { e.gname = v }

func (e *Entry) Size() int64 { return e.size }
func (e *Entry) SizeIsSet() bool {
	return e.sizeSet
}
func (e *Entry) SetSize(v int64) {
	e.size = v
	e.sizeSet = true
}
func (e *Entry) UnsetSize() {
	e.size = 0
	e.sizeSet = false
}

func (e *Entry) Uid() int64     { return e.uid }
func (e *Entry) SetUid(v int64) { e.uid = v }

func (e *Entry) Gid() int64     { return e.gid }
func (e *Entry) SetGid(v int64) { e.gid = v }

func (e *Entry) Dev() uint64     { return e.dev }
func (e *Entry) SetDev(v uint64) { e.dev = v }

func (e *Entry) Ino() uint64 { return e.ino }
func (e *Entry) InoIsSet() bool {
	return e.inoSet
}
func (e *Entry) SetIno(v uint64) {
	e.ino = v
	e.inoSet = true
}

func (e *Entry) Rdev() uint64     { return e.rdev }
func (e *Entry) SetRdev(v uint64) { e.rdev = v }

// RdevMajor returns the major number of the device the entry describes.
func (e *Entry) RdevMajor() uint32 { return Major(e.rdev) }

// RdevMinor returns the minor number of the device the entry describes.
func (e *Entry) RdevMinor() uint32 { return Minor(e.rdev) }

func (e *Entry) Mode() uint32     { return e.mode }
func (e *Entry) SetMode(v uint32) { e.mode = v }

func (e *Entry) Filetype() uint32 { return e.mode & TypeMask }
func (e *Entry) SetFiletype(v uint32) {
	e.mode = (e.mode &^ TypeMask) | (v & TypeMask)
}

func (e *Entry) Perm() uint32 { return e.mode &^ TypeMask }
func (e *Entry) SetPerm(v uint32) {
	e.mode = (e.mode & TypeMask) | (v &^ TypeMask)
}

func (e *Entry) Nlink() uint32     { return e.nlink }
func (e *Entry) SetNlink(v uint32) { e.nlink = v }

func (e *Entry) Atime() time.Time     { return e.atime }
func (e *Entry) SetAtime(v time.Time) { e.atime = v }

func (e *Entry) Mtime() time.Time     { return e.mtime }
func (e *Entry) SetMtime(v time.Time) { e.mtime = v }

func (e *Entry) Ctime() time.Time     { return e.ctime }
func (e *Entry) SetCtime(v time.Time) { e.ctime = v }

func (e *Entry) Birthtime() time.Time     { return e.birthtime }
func (e *Entry) SetBirthtime(v time.Time) { e.birthtime = v }

// Fflags returns the file flags to set and to clear.
func (e *Entry) Fflags() (set, clear uint64) { return e.fflagsSet, e.fflagsClr }
func (e *Entry) SetFflags(set, clear uint64) {
	e.fflagsSet = set
	e.fflagsClr = clear
}

// Makedev combines major and minor device numbers using the Linux encoding.
func Makedev(major, minor uint32) uint64 {
	ma, mi := uint64(major), uint64(minor)
	return (mi & 0xff) | ((ma & 0xfff) << 8) | ((mi &^ 0xff) << 12) | ((ma &^ 0xfff) << 32)
}

// Major extracts the major number from a device identifier.
func Major(dev uint64) uint32 {
	return uint32(((dev >> 8) & 0xfff) | ((dev >> 32) &^ 0xfff))
}

// Minor extracts the minor number from a device identifier.
func Minor(dev uint64) uint32 {
	return uint32((dev & 0xff) | ((dev >> 12) &^ 0xff))
}
