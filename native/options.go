package native

import (
	"fmt"
	"strconv"
	"strings"
)

// optionHandler applies one option to a module. It reports false when the
// module does not know the option.
type optionHandler func(a *Archive, name, value string, on bool) (bool, error)

// SetOptions applies a comma-separated list of options of the form
// [module:]name[=value] or [module:]!name. Unqualified options are offered to
// every active module and must be recognised by at least one.
func (a *Archive) SetOptions(opts string) Status {
	if st := a.check(a.direction, "archive_set_options", stateNew); st != StatusOK {
		return st
	}
	for _, raw := range strings.Split(opts, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if st := a.setOption(raw); st != StatusOK {
			return st
		}
	}
	return StatusOK
}

func (a *Archive) setOption(raw string) Status {
	module, rest, qualified := strings.Cut(raw, ":")
	if !qualified {
		module, rest = "", raw
	}
	on := true
	if strings.HasPrefix(rest, "!") {
		on = false
		rest = rest[1:]
	}
	name, value, _ := strings.Cut(rest, "=")
	if name == "" {
		a.SetError(ErrnoMisc, "Empty option")
		return StatusFailed
	}

	modules := a.optionModules()
	if module != "" {
		h, ok := modules[module]
		if !ok {
			a.SetError(ErrnoMisc, "Unknown module name: `%s'", module)
			return StatusFailed
		}
		handled, err := h(a, name, value, on)
		if err != nil {
			a.SetError(ErrnoMisc, "%s", err.Error())
			return StatusFailed
		}
		if !handled {
			a.SetError(ErrnoMisc, "Undefined option: `%s:%s'", module, name)
			return StatusFailed
		}
		return StatusOK
	}

	found := false
	for _, h := range modules {
		handled, err := h(a, name, value, on)
		if err != nil {
			a.SetError(ErrnoMisc, "%s", err.Error())
			return StatusFailed
		}
		found = found || handled
	}
	if !found {
		a.SetError(ErrnoMisc, "Undefined option: `%s'", name)
		return StatusFailed
	}
	return StatusOK
}

func (a *Archive) optionModules() map[string]optionHandler {
	mods := make(map[string]optionHandler)
	switch a.direction {
	case DirectionRead:
		for _, f := range a.r.formats {
			switch f.name {
			case "tar", "cpio":
				mods[f.name] = hdrcharsetOption
			default:
				mods[f.name] = noOptions
			}
		}
		for _, f := range a.r.filters {
			mods[f.name] = noOptions
		}
	case DirectionWrite:
		if f := a.w.format; f != nil {
			mods[f.module] = hdrcharsetOption
		}
		for _, f := range a.w.filters {
			mods[f.name] = levelOption(f.name)
		}
	}
	return mods
}

func noOptions(*Archive, string, string, bool) (bool, error) {
	return false, nil
}

func hdrcharsetOption(_ *Archive, name, value string, on bool) (bool, error) {
	if name != "hdrcharset" {
		return false, nil
	}
	if !on || value == "" {
		return true, fmt.Errorf("hdrcharset option needs a character-set name")
	}
	switch strings.ToUpper(value) {
	case "UTF-8", "UTF8":
		return true, nil
	}
	return true, fmt.Errorf("Illegal value `%s' for option `hdrcharset': only UTF-8 is supported", value)
}

var levelRanges = map[string][2]int{
	"gzip": {0, 9},
	"xz":   {0, 9},
	"lzma": {0, 9},
	"zstd": {1, 22},
	"lz4":  {1, 9},
}

func levelOption(filter string) optionHandler {
	return func(a *Archive, name, value string, on bool) (bool, error) {
		switch {
		case name == "compression-level":
			lo, hi := levelRanges[filter][0], levelRanges[filter][1]
			n, err := strconv.Atoi(value)
			if err != nil || !on || n < lo || n > hi {
				return true, fmt.Errorf("Illegal value `%s' for option `%s:compression-level' (%d-%d)", value, filter, lo, hi)
			}
			a.w.levels[filter] = n
			return true, nil
		case name == "timestamp" && filter == "gzip" && a.hasWriteFilter("gzip"):
			a.w.gzipTimestamp = on
			return true, nil
		}
		return false, nil
	}
}
