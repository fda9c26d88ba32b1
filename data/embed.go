package data

import (
	_ "embed"
)

// DeviceCatalog is the JSON list of discoverable device templates, in declaration order
//
//go:embed catalog.json
var DeviceCatalog []byte
