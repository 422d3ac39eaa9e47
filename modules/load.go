package modules

import (
	"github.com/iota-uz/orgchart/modules/hierarchy"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
	"github.com/iota-uz/orgchart/pkg/application"
)

type Options struct {
	Store          *services.HierarchyStore
	DefaultCascade bool
}

// BuiltInModules returns the modules every server registers.
func BuiltInModules(opts Options) []application.Module {
	return []application.Module{
		hierarchy.NewModule(hierarchy.ModuleOptions{
			Store:          opts.Store,
			DefaultCascade: opts.DefaultCascade,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.LoadModules(app, externalModules...)
}
