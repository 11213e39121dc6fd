package templates

import "embed"

// Kinds is the default kind table, one file per kind.
//
//go:embed kinds/*.yaml
var Kinds embed.FS

// Stacks holds example stack declarations.
//
//go:embed stacks/*.yaml
var Stacks embed.FS
