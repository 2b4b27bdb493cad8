package tools

import (
	"eolmatch/pkg/logx"
	"eolmatch/pkg/reference"
)

// NewDefaultRegistry registers get_reference_list over cache and lookup_version over lookup.
// The cache is owned by the caller and lives as long as the run that created it.
func NewDefaultRegistry(cache *reference.Cache, lookup Lookuper, logger *logx.Logger) (*Registry, error) {
	return NewRegistry(logger,
		NewReferenceListTool(cache),
		NewLookupVersionTool(lookup),
	)
}
