package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/archive-runtime/archive"
)

// member is one listing row.
type member struct {
	Path     string    `json:"path" yaml:"path"`
	Type     string    `json:"type" yaml:"type"`
	Mode     string    `json:"mode" yaml:"mode"`
	Size     int64     `json:"size" yaml:"size"`
	Uid      int64     `json:"uid" yaml:"uid"`
	Gid      int64     `json:"gid" yaml:"gid"`
	Uname    string    `json:"uname,omitempty" yaml:"uname,omitempty"`
	Gname    string    `json:"gname,omitempty" yaml:"gname,omitempty"`
	Modified time.Time `json:"modified" yaml:"modified"`
	Link     string    `json:"link,omitempty" yaml:"link,omitempty"`
	Digest   string    `json:"digest,omitempty" yaml:"digest,omitempty"`
}

// describe snapshots e, hashing the member's payload when digest is set.
func describe(s *archive.ReadSession, e *archive.Entry, digest bool) (member, error) {
	size, _ := e.Size()
	m := member{
		Path:     e.Pathname(),
		Type:     e.Filetype().String(),
		Mode:     fileMode(e).String(),
		Size:     size,
		Uid:      e.Uid(),
		Gid:      e.Gid(),
		Uname:    e.Uname(),
		Gname:    e.Gname(),
		Modified: e.Mtime().UTC(),
		Link:     e.Link(),
	}
	if digest && e.Filetype() == archive.TypeRegular {
		h := blake3.New()
		if _, err := s.WriteTo(h); err != nil {
			return member{}, fmt.Errorf("%s: %w", m.Path, err)
		}
		m.Digest = hex.EncodeToString(h.Sum(nil))
	}
	return m, nil
}

func fileMode(e *archive.Entry) fs.FileMode {
	mode := fs.FileMode(e.Perm() & 0o777)
	switch e.Filetype() {
	case archive.TypeDir:
		mode |= fs.ModeDir
	case archive.TypeSymlink:
		mode |= fs.ModeSymlink
	case archive.TypeChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case archive.TypeBlock:
		mode |= fs.ModeDevice
	case archive.TypeFIFO:
		mode |= fs.ModeNamedPipe
	case archive.TypeSocket:
		mode |= fs.ModeSocket
	}
	return mode
}

// collect lists every member of the archive at path.
func collect(opts *options, path string) ([]member, error) {
	s, err := openArchive(opts.profile, path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var members []member
	for e, err := range s.Headers() {
		if err != nil {
			return nil, err
		}
		m, err := describe(s, e, opts.digest)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, s.Close()
}

func runList(opts *options, stdout io.Writer) error {
	path, err := archiveArg(opts)
	if err != nil {
		return err
	}
	members, err := collect(opts, path)
	if err != nil {
		return err
	}
	return encode(stdout, opts.profile.Output, members)
}

func encode(w io.Writer, output string, members []member) error {
	if members == nil {
		members = []member{}
	}
	switch output {
	case "", "text":
		return writeText(w, members)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(members)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(members)
	case "cbor":
		data, err := cbor.Marshal(members)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown output encoding %q", output)
	}
}

func writeText(w io.Writer, members []member) error {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, m := range members {
		owner := m.Uname
		if owner == "" {
			owner = fmt.Sprint(m.Uid)
		}
		group := m.Gname
		if group == "" {
			group = fmt.Sprint(m.Gid)
		}
		name := m.Path
		if m.Link != "" {
			name += " -> " + m.Link
		}
		fmt.Fprintf(tw, "%s\t%s/%s\t%s\t%s\t%s", m.Mode, owner, group,
			humanize.IBytes(uint64(m.Size)), m.Modified.Format("2006-01-02 15:04"), name)
		if m.Digest != "" {
			fmt.Fprintf(tw, "\t%s", m.Digest)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
