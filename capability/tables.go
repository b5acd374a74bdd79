package capability

import "github.com/wippyai/archive-runtime/native"

// ReadFormats lists the archive formats a read session can enable.
var ReadFormats = &Table{
	Domain: "format",
	Op:     "archive_read_support_format_*",
	Entries: []Capability{
		{Name: "all", Enable: (*native.Archive).SupportFormatAll},
		{Name: "7zip", Enable: (*native.Archive).SupportFormat7zip},
		{Name: "ar", Enable: (*native.Archive).SupportFormatAr},
		{Name: "cab", Enable: (*native.Archive).SupportFormatCab},
		{Name: "cpio", Enable: (*native.Archive).SupportFormatCpio},
		{Name: "empty", Enable: (*native.Archive).SupportFormatEmpty},
		{Name: "gnutar", Enable: (*native.Archive).SupportFormatGnutar},
		{Name: "iso9660", Enable: (*native.Archive).SupportFormatISO9660},
		{Name: "lha", Enable: (*native.Archive).SupportFormatLha},
		{Name: "mtree", Enable: (*native.Archive).SupportFormatMtree},
		{Name: "rar", Enable: (*native.Archive).SupportFormatRar},
		{Name: "raw", Enable: (*native.Archive).SupportFormatRaw},
		{Name: "tar", Enable: (*native.Archive).SupportFormatTar},
		{Name: "warc", Enable: (*native.Archive).SupportFormatWarc},
		{Name: "xar", Enable: (*native.Archive).SupportFormatXar},
		{Name: "zip", Enable: (*native.Archive).SupportFormatZip},
	},
}

// ReadFilters lists the compression filters a read session can enable.
var ReadFilters = &Table{
	Domain: "compression",
	Op:     "archive_read_support_compression_*",
	Entries: []Capability{
		{Name: "all", Enable: (*native.Archive).SupportFilterAll},
		{Name: "bzip2", Enable: (*native.Archive).SupportFilterBzip2},
		{Name: "compress", Enable: (*native.Archive).SupportFilterCompress},
		{Name: "gzip", Enable: (*native.Archive).SupportFilterGzip},
		{Name: "lz4", Enable: (*native.Archive).SupportFilterLz4},
		{Name: "lzip", Enable: (*native.Archive).SupportFilterLzip},
		{Name: "lzma", Enable: (*native.Archive).SupportFilterLzma},
		{Name: "none", Enable: (*native.Archive).SupportFilterNone},
		{Name: "rpm", Enable: (*native.Archive).SupportFilterRpm},
		{Name: "uu", Enable: (*native.Archive).SupportFilterUu},
		{Name: "xz", Enable: (*native.Archive).SupportFilterXz},
		{Name: "zstd", Enable: (*native.Archive).SupportFilterZstd},
	},
}

// WriteFormats lists the output formats. Several names alias one setter.
var WriteFormats = &Table{
	Domain: "format",
	Op:     "archive_write_set_format_*",
	Entries: []Capability{
		{Name: "ar", Enable: (*native.Archive).SetFormatArBsd},
		{Name: "arbsd", Enable: (*native.Archive).SetFormatArBsd},
		{Name: "argnu", Enable: (*native.Archive).SetFormatArSvr4},
		{Name: "arsvr4", Enable: (*native.Archive).SetFormatArSvr4},
		{Name: "cpio", Enable: (*native.Archive).SetFormatCpio},
		{Name: "gnutar", Enable: (*native.Archive).SetFormatGnutar},
		{Name: "mtree", Enable: (*native.Archive).SetFormatMtree},
		{Name: "newc", Enable: (*native.Archive).SetFormatCpioNewc},
		{Name: "odc", Enable: (*native.Archive).SetFormatCpio},
		{Name: "pax", Enable: (*native.Archive).SetFormatPax},
		{Name: "posix", Enable: (*native.Archive).SetFormatPax},
		{Name: "shar", Enable: (*native.Archive).SetFormatShar},
		{Name: "shardump", Enable: (*native.Archive).SetFormatSharDump},
		{Name: "ustar", Enable: (*native.Archive).SetFormatUstar},
		{Name: "ar_bsd", Enable: (*native.Archive).SetFormatArBsd},
		{Name: "ar_svr4", Enable: (*native.Archive).SetFormatArSvr4},
		{Name: "cpio_newc", Enable: (*native.Archive).SetFormatCpioNewc},
		{Name: "pax_restricted", Enable: (*native.Archive).SetFormatPaxRestricted},
		{Name: "shar_dump", Enable: (*native.Archive).SetFormatSharDump},
	},
}

// WriteFilters lists the output compression filters, applied in list order.
var WriteFilters = &Table{
	Domain: "compression",
	Op:     "archive_write_set_compression_*",
	Entries: []Capability{
		{Name: "bzip2", Enable: (*native.Archive).AddFilterBzip2},
		{Name: "compress", Enable: (*native.Archive).AddFilterCompress},
		{Name: "gzip", Enable: (*native.Archive).AddFilterGzip},
		{Name: "lzma", Enable: (*native.Archive).AddFilterLzma},
		{Name: "xz", Enable: (*native.Archive).AddFilterXz},
		{Name: "zstd", Enable: (*native.Archive).AddFilterZstd},
		{Name: "lz4", Enable: (*native.Archive).AddFilterLz4},
		{Name: "none", Enable: (*native.Archive).AddFilterNone},
	},
}
