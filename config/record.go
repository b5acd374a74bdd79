package config

import (
	"io"
	"math"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/errors"
)

// Record is a host configuration table: string keys mapped to host values.
type Record = map[string]any

type readRecord struct {
	Reader      any    `mapstructure:"reader"`
	Format      string `mapstructure:"format" validate:"required"`
	Compression string `mapstructure:"compression"`
	Options     string `mapstructure:"options"`
}

type writeRecord struct {
	BytesPerBlock    *int   `mapstructure:"bytes_per_block"`
	BytesInLastBlock *int   `mapstructure:"bytes_in_last_block"`
	SkipFile         any    `mapstructure:"skip_file"`
	Format           string `mapstructure:"format" validate:"required"`
	Compression      string `mapstructure:"compression"`
	Options          string `mapstructure:"options"`
}

// DecodeRead converts a host record into a read session configuration.
//
// Recognised keys are reader, format, compression and options. The reader
// may be an archive.ReaderFunc, a func(*archive.ReadSession, bool) ([]byte,
// error), a func() ([]byte, error) or an io.Reader. Unknown keys are ignored.
func DecodeRead(rec Record) (archive.ReadConfig, error) {
	reader, err := readerOf(rec["reader"])
	if err != nil {
		return archive.ReadConfig{}, err
	}

	var r readRecord
	if err := decode(rec, &r); err != nil {
		return archive.ReadConfig{}, err
	}
	if err := check(&r); err != nil {
		return archive.ReadConfig{}, err
	}
	return archive.ReadConfig{
		Reader:      reader,
		Format:      r.Format,
		Compression: r.Compression,
		Options:     r.Options,
	}, nil
}

// DecodeWrite converts a host record into a write session configuration.
//
// Recognised keys are bytes_per_block, bytes_in_last_block, skip_file
// ({dev, ino}), format, compression and options.
func DecodeWrite(rec Record) (archive.WriteConfig, error) {
	var w writeRecord
	if err := decode(rec, &w); err != nil {
		return archive.WriteConfig{}, err
	}

	var skip *archive.FileID
	if w.SkipFile != nil {
		id, err := fileIDOf(w.SkipFile)
		if err != nil {
			return archive.WriteConfig{}, err
		}
		skip = &id
	}

	if err := check(&w); err != nil {
		return archive.WriteConfig{}, err
	}
	return archive.WriteConfig{
		BytesPerBlock:    w.BytesPerBlock,
		BytesInLastBlock: w.BytesInLastBlock,
		SkipFile:         skip,
		Format:           w.Format,
		Compression:      w.Compression,
		Options:          w.Options,
	}, nil
}

func readerOf(v any) (archive.ReaderFunc, error) {
	switch r := v.(type) {
	case nil:
		return nil, errors.Configuration([]string{"reader"}, "reader must be a function")
	case archive.ReaderFunc:
		return r, nil
	case func(*archive.ReadSession, bool) ([]byte, error):
		return r, nil
	case func() ([]byte, error):
		return func(_ *archive.ReadSession, closing bool) ([]byte, error) {
			if closing {
				return nil, nil
			}
			return r()
		}, nil
	case io.Reader:
		return archive.ReaderFrom(r, 0), nil
	default:
		return nil, errors.Configuration([]string{"reader"}, "reader must be a function, got %T", v)
	}
}

func fileIDOf(v any) (archive.FileID, error) {
	switch id := v.(type) {
	case archive.FileID:
		return id, nil
	case *archive.FileID:
		if id != nil {
			return *id, nil
		}
	case map[string]any:
		dev, ok := number(id["dev"])
		if !ok {
			return archive.FileID{}, errors.Configuration([]string{"skip_file", "dev"}, "skip_file.dev member must be a number")
		}
		ino, ok := number(id["ino"])
		if !ok {
			return archive.FileID{}, errors.Configuration([]string{"skip_file", "ino"}, "skip_file.ino member must be a number")
		}
		return archive.FileID{Dev: dev, Ino: ino}, nil
	}
	return archive.FileID{}, errors.Configuration([]string{"skip_file"}, "skip_file member must be a table object")
}

// number converts any Go numeric value to uint64, truncating fractions.
func number(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return uint64(rv.Float()), true
	default:
		return 0, false
	}
}

func decode(rec Record, out any) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   out,
		Metadata: &md,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			unixTimeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return errors.Wrap(errors.PhaseConstruct, errors.KindInternal, err, "record decoder")
	}
	if err := dec.Decode(rec); err != nil {
		if merr, ok := err.(*mapstructure.Error); ok && len(merr.Errors) > 0 {
			return errors.New(errors.PhaseConstruct, errors.KindConfiguration).
				Detail("%s", merr.Errors[0]).
				Cause(err).
				Build()
		}
		return errors.Wrap(errors.PhaseConstruct, errors.KindConfiguration, err, "malformed record")
	}
	if len(md.Unused) > 0 {
		archive.Logger().Debug("ignoring unknown record keys", zap.Strings("keys", md.Unused))
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// unixTimeHook decodes numbers into times as seconds since the epoch.
func unixTimeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	rv := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Unix(rv.Int(), 0), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Unix(int64(rv.Uint()), 0), nil
	case reflect.Float32, reflect.Float64:
		sec, frac := math.Modf(rv.Float())
		return time.Unix(int64(sec), int64(frac*1e9)), nil
	}
	return data, nil
}
