package hierarchy

import (
	"errors"

	"github.com/iota-uz/orgchart/modules/hierarchy/presentation/controllers"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
	"github.com/iota-uz/orgchart/pkg/application"
)

type ModuleOptions struct {
	Store          *services.HierarchyStore
	DefaultCascade bool
}

func NewModule(opts ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	if m.opts.Store == nil {
		return errors.New("hierarchy store is required")
	}
	app.RegisterServices(
		services.NewHierarchyService(m.opts.Store, app.Logger(), services.WithPublisher(app.EventPublisher())),
	)
	app.RegisterControllers(
		controllers.NewHierarchyAPIController(app, controllers.WithDefaultCascade(m.opts.DefaultCascade)),
	)
	return nil
}

func (m *Module) Name() string {
	return "hierarchy"
}
