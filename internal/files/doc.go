// Package files discovers and classifies raw Fitbit export files.
//
// A raw data root contains one subfolder per export time window. Each
// window folder is listed recursively and every table file inside is
// classified against a fixed allow/deny list of well-known Fitabase
// file names. Files matching neither list are ignored.
//
// Example usage:
//
//	discovery := files.NewDiscovery(cfg.Data.RawDir, logger)
//
//	windows, err := discovery.DiscoverWindows()
//	for _, w := range windows {
//	    sources, err := discovery.ListSources(w)
//	    // load sources...
//	}
package files
