package assets

import (
	_ "embed"
)

// DashboardHTML is the single-page web dashboard served at "/".
//
//go:embed dashboard.html
var DashboardHTML []byte
