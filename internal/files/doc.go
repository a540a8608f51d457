// Package files stores uploaded survey datasets and the datasets.json
// registry that names them.
//
// Manager performs the raw file operations (size-limited stream saves and
// atomic replace-by-rename writes) relative to the configured paths.
// Registry maps dataset ids to stored files:
//
//	{
//	  "20240131_093000": {
//	    "name": "현장A.csv",
//	    "file": "20240131_093000_현장A.csv",
//	    "format": "csv",
//	    "size": 10240,
//	    "uploaded_at": "2024-01-31T00:30:00Z"
//	  }
//	}
//
// Registries written by earlier tools that only carry name and file are read
// as they are. Discovery lists data files on disk so that files without a
// registry entry can be reported.
package files
