package config

import (
	"time"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/errors"
)

// EntryFields is the decoded form of an entry record. Nil fields are left
// untouched by Apply.
type EntryFields struct {
	Pathname   *string `mapstructure:"pathname"`
	Hardlink   *string `mapstructure:"hardlink"`
	Symlink    *string `mapstructure:"symlink"`
	Sourcepath *string `mapstructure:"sourcepath"`
	Uname      *string `mapstructure:"uname"`
	Gname      *string `mapstructure:"gname"`

	Size  *int64  `mapstructure:"size" validate:"omitnil,gte=0"`
	Uid   *int64  `mapstructure:"uid" validate:"omitnil,gte=0"`
	Gid   *int64  `mapstructure:"gid" validate:"omitnil,gte=0"`
	Dev   *uint64 `mapstructure:"dev"`
	Ino   *uint64 `mapstructure:"ino"`
	Rdev  *uint64 `mapstructure:"rdev"`
	Nlink *uint32 `mapstructure:"nlink"`

	// Mode is applied before Filetype and Perm, which override its halves.
	Mode     *uint32 `mapstructure:"mode"`
	Filetype *string `mapstructure:"filetype" validate:"omitnil,oneof=file link socket character block directory fifo"`
	Perm     *uint32 `mapstructure:"perm" validate:"omitnil,lte=4095"`

	// Times accept seconds since the epoch (fractions allowed), RFC 3339
	// strings or time.Time values.
	Atime     *time.Time `mapstructure:"atime"`
	Mtime     *time.Time `mapstructure:"mtime"`
	Ctime     *time.Time `mapstructure:"ctime"`
	Birthtime *time.Time `mapstructure:"birthtime"`

	FflagsSet   *uint64 `mapstructure:"fflags_set"`
	FflagsClear *uint64 `mapstructure:"fflags_clear"`
}

// DecodeEntry converts an entry record into EntryFields.
func DecodeEntry(rec Record) (EntryFields, error) {
	var f EntryFields
	if err := decode(rec, &f); err != nil {
		return EntryFields{}, err
	}
	if err := check(&f); err != nil {
		return EntryFields{}, err
	}
	return f, nil
}

// Apply copies every set field onto e.
func (f EntryFields) Apply(e *archive.Entry) error {
	if e == nil || e.Closed() {
		return errors.New(errors.PhaseEntry, errors.KindInvalidState).
			Op("apply").
			Detail("entry is nil or closed").
			Build()
	}

	set(f.Pathname, e.SetPathname)
	set(f.Hardlink, e.SetHardlink)
	set(f.Symlink, e.SetSymlink)
	set(f.Sourcepath, e.SetSourcepath)
	set(f.Uname, e.SetUname)
	set(f.Gname, e.SetGname)

	set(f.Size, e.SetSize)
	set(f.Uid, e.SetUid)
	set(f.Gid, e.SetGid)
	set(f.Dev, e.SetDev)
	set(f.Ino, e.SetIno)
	set(f.Rdev, e.SetRdev)
	set(f.Nlink, e.SetNlink)

	set(f.Mode, e.SetMode)
	if f.Filetype != nil {
		ft, ok := archive.ParseFileType(*f.Filetype)
		if !ok {
			return errors.Configuration([]string{"filetype"}, "unknown file type %q", *f.Filetype)
		}
		e.SetFiletype(ft)
	}
	set(f.Perm, e.SetPerm)

	set(f.Atime, e.SetAtime)
	set(f.Mtime, e.SetMtime)
	set(f.Ctime, e.SetCtime)
	set(f.Birthtime, e.SetBirthtime)

	if f.FflagsSet != nil || f.FflagsClear != nil {
		s, c := e.Fflags()
		if f.FflagsSet != nil {
			s = *f.FflagsSet
		}
		if f.FflagsClear != nil {
			c = *f.FflagsClear
		}
		e.SetFflags(s, c)
	}
	return nil
}

func set[T any](v *T, setter func(T) T) {
	if v != nil {
		setter(*v)
	}
}
