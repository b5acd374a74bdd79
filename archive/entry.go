package archive

import (
	"runtime"
	"time"

	"github.com/wippyai/archive-runtime/native"
)

// FileType is the file type portion of an entry's mode.
type FileType uint32

const (
	TypeRegular = FileType(native.TypeRegular)
	TypeSymlink = FileType(native.TypeSymlink)
	TypeSocket  = FileType(native.TypeSocket)
	TypeChar    = FileType(native.TypeChar)
	TypeBlock   = FileType(native.TypeBlock)
	TypeDir     = FileType(native.TypeDir)
	TypeFIFO    = FileType(native.TypeFIFO)
)

var fileTypeNames = map[FileType]string{
	TypeRegular: "file",
	TypeSymlink: "link",
	TypeSocket:  "socket",
	TypeChar:    "character",
	TypeBlock:   "block",
	TypeDir:     "directory",
	TypeFIFO:    "fifo",
}

func (t FileType) String() string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseFileType returns the FileType named by s, as printed by String.
func ParseFileType(s string) (FileType, bool) {
	for t, name := range fileTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// Entry is a metadata record for one archive member.
//
// Every field has a getter and a setter; setters return the prior value.
// Once the entry is closed getters return zero values and setters do nothing.
type Entry struct {
	raw     *native.Entry
	cleanup runtime.Cleanup
}

// NewEntry allocates an empty entry, e.g. for WriteSession.WriteHeader.
func NewEntry() *Entry {
	return newEntry(native.NewEntry())
}

func newEntry(raw *native.Entry) *Entry {
	e := &Entry{raw: raw}
	entryCount.Add(1)
	e.cleanup = runtime.AddCleanup(e, freeEntry, raw)
	return e
}

func freeEntry(raw *native.Entry) {
	if raw.Freed() {
		return
	}
	raw.Free()
	entryCount.Add(-1)
}

// Close frees the native record. Calling Close more than once is a no-op.
func (e *Entry) Close() {
	e.cleanup.Stop()
	freeEntry(e.raw)
}

// Closed reports whether the native record has been freed.
func (e *Entry) Closed() bool {
	return e.raw.Freed()
}

func (e *Entry) live() bool {
	return !e.raw.Freed()
}

// Pathname returns the member's path within the archive.
func (e *Entry) Pathname() string {
	if !e.live() {
		return ""
	}
	return e.raw.Pathname()
}

func (e *Entry) SetPathname(v string) string {
	prior := e.Pathname()
	if e.live() {
		e.raw.SetPathname(v)
	}
	return prior
}

// Hardlink returns the path of the member this one is a hard link to, if any.
func (e *Entry) Hardlink() string {
	if !e.live() {
		return ""
	}
	return e.raw.Hardlink()
}

func (e *Entry) SetHardlink(v string) string {
	prior := e.Hardlink()
	if e.live() {
		e.raw.SetHardlink(v)
	}
	return prior
}

// Symlink returns the symlink target, if any.
func (e *Entry) Symlink() string {
	if !e.live() {
		return ""
	}
	return e.raw.Symlink()
}

func (e *Entry) SetSymlink(v string) string {
	prior := e.Symlink()
	if e.live() {
		e.raw.SetSymlink(v)
	}
	return prior
}

// Link returns the symlink target if set, otherwise the hardlink target.
func (e *Entry) Link() string {
	if s := e.Symlink(); s != "" {
		return s
	}
	return e.Hardlink()
}

// SetLink replaces the symlink target when one is present, otherwise the
// hardlink target.
func (e *Entry) SetLink(v string) string {
	prior := e.Link()
	if e.live() {
		e.raw.SetLink(v)
	}
	return prior
}

// Sourcepath returns the filesystem path the member was read from, when known.
func (e *Entry) Sourcepath() string {
	if !e.live() {
		return ""
	}
	return e.raw.Sourcepath()
}

func (e *Entry) SetSourcepath(v string) string {
	prior := e.Sourcepath()
	if e.live() {
		e.raw.SetSourcepath(v)
	}
	return prior
}

// Uname returns the owner's user name.
func (e *Entry) Uname() string {
	if !e.live() {
		return ""
	}
	return e.raw.Uname()
}

func (e *Entry) SetUname(v string) string {
	prior := e.Uname()
	if e.live() {
		e.raw.SetUname(v)
	}
	return prior
}

// Gname returns the owner's group name.
func (e *Entry) Gname() string {
	if !e.live() {
		return ""
	}
	return e.raw.Gname()
}

func (e *Entry) SetGname(v string) string {
	prior := e.Gname()
	if e.live() {
		e.raw.SetGname(v)
	}
	return prior
}

// Size returns the payload size and whether it is set.
func (e *Entry) Size() (int64, bool) {
	if !e.live() {
		return 0, false
	}
	return e.raw.Size(), e.raw.SizeIsSet()
}

// SetSize sets the payload size and returns the prior size.
func (e *Entry) SetSize(v int64) int64 {
	prior, _ := e.Size()
	if e.live() {
		e.raw.SetSize(v)
	}
	return prior
}

// Uid returns the numeric owner id.
func (e *Entry) Uid() int64 {
	if !e.live() {
		return 0
	}
	return e.raw.Uid()
}

func (e *Entry) SetUid(v int64) int64 {
	prior := e.Uid()
	if e.live() {
		e.raw.SetUid(v)
	}
	return prior
}

// Gid returns the numeric group id.
func (e *Entry) Gid() int64 {
	if !e.live() {
		return 0
	}
	return e.raw.Gid()
}

func (e *Entry) SetGid(v int64) int64 {
	prior := e.Gid()
	if e.live() {
		e.raw.SetGid(v)
	}
	return prior
}

// Dev returns the device of the file the member came from.
func (e *Entry) Dev() uint64 {
	if !e.live() {
		return 0
	}
	return e.raw.Dev()
}

func (e *Entry) SetDev(v uint64) uint64 {
	prior := e.Dev()
	if e.live() {
		e.raw.SetDev(v)
	}
	return prior
}

// Ino returns the inode of the file the member came from.
func (e *Entry) Ino() uint64 {
	if !e.live() {
		return 0
	}
	return e.raw.Ino()
}

func (e *Entry) SetIno(v uint64) uint64 {
	prior := e.Ino()
	if e.live() {
		e.raw.SetIno(v)
	}
	return prior
}

// Rdev returns the device number of a character or block device member.
func (e *Entry) Rdev() uint64 {
	if !e.live() {
		return 0
	}
	return e.raw.Rdev()
}

func (e *Entry) SetRdev(v uint64) uint64 {
	prior := e.Rdev()
	if e.live() {
		e.raw.SetRdev(v)
	}
	return prior
}

// Mode returns the combined file type and permission bits.
func (e *Entry) Mode() uint32 {
	if !e.live() {
		return 0
	}
	return e.raw.Mode()
}

// SetMode replaces both the type and permission bits.
func (e *Entry) SetMode(v uint32) uint32 {
	prior := e.Mode()
	if e.live() {
		e.raw.SetMode(v)
	}
	return prior
}

// Filetype returns the file type bits of the mode.
func (e *Entry) Filetype() FileType {
	if !e.live() {
		return 0
	}
	return FileType(e.raw.Filetype())
}

// SetFiletype replaces the type bits and keeps the permissions.
func (e *Entry) SetFiletype(v FileType) FileType {
	prior := e.Filetype()
	if e.live() {
		e.raw.SetFiletype(uint32(v))
	}
	return prior
}

// Perm returns the permission bits of the mode.
func (e *Entry) Perm() uint32 {
	if !e.live() {
		return 0
	}
	return e.raw.Perm()
}

// SetPerm replaces the permission bits and keeps the type.
func (e *Entry) SetPerm(v uint32) uint32 {
	prior := e.Perm()
	if e.live() {
		e.raw.SetPerm(v)
	}
	return prior
}

// Nlink returns the hard link count.
func (e *Entry) Nlink() uint32 {
	if !e.live() {
		return 0
	}
	return e.raw.Nlink()
}

func (e *Entry) SetNlink(v uint32) uint32 {
	prior := e.Nlink()
	if e.live() {
		e.raw.SetNlink(v)
	}
	return prior
}

// Atime returns the access time, or the zero time when unset.
func (e *Entry) Atime() time.Time {
	if !e.live() {
		return time.Time{}
	}
	return e.raw.Atime()
}

func (e *Entry) SetAtime(v time.Time) time.Time {
	prior := e.Atime()
	if e.live() {
		e.raw.SetAtime(v)
	}
	return prior
}

// Mtime returns the modification time, or the zero time when unset.
func (e *Entry) Mtime() time.Time {
	if !e.live() {
		return time.Time{}
	}
	return e.raw.Mtime()
}

func (e *Entry) SetMtime(v time.Time) time.Time {
	prior := e.Mtime()
	if e.live() {
		e.raw.SetMtime(v)
	}
	return prior
}

// Ctime returns the status change time, or the zero time when unset.
func (e *Entry) Ctime() time.Time {
	if !e.live() {
		return time.Time{}
	}
	return e.raw.Ctime()
}

func (e *Entry) SetCtime(v time.Time) time.Time {
	prior := e.Ctime()
	if e.live() {
		e.raw.SetCtime(v)
	}
	return prior
}

// Birthtime returns the creation time, or the zero time when unset.
func (e *Entry) Birthtime() time.Time {
	if !e.live() {
		return time.Time{}
	}
	return e.raw.Birthtime()
}

func (e *Entry) SetBirthtime(v time.Time) time.Time {
	prior := e.Birthtime()
	if e.live() {
		e.raw.SetBirthtime(v)
	}
	return prior
}

// Fflags returns the file flags to set and to clear.
func (e *Entry) Fflags() (set, clear uint64) {
	if !e.live() {
		return 0, 0
	}
	return e.raw.Fflags()
}

// SetFflags replaces the file flags and returns the prior pair.
func (e *Entry) SetFflags(set, clear uint64) (priorSet, priorClear uint64) {
	priorSet, priorClear = e.Fflags()
	if e.live() {
		e.raw.SetFflags(set, clear)
	}
	return priorSet, priorClear
}
