// Package config turns loosely typed host records into binding
// configuration, and loads the command-line tool's profile.
//
// Host records are map[string]any tables as an embedding scripting layer
// would hand them over:
//
//	cfg, err := config.DecodeRead(config.Record{
//		"reader":      os.Stdin,
//		"format":      "tar cpio",
//		"compression": "all",
//	})
//	s, err := archive.Read(cfg)
//
// Malformed records fail with an error matching errors.ErrConfiguration
// before any native resource is allocated.
package config
