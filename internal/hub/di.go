package hub

import (
	"github.com/minutelab/minute/internal/config"
	"github.com/minutelab/minute/internal/gateway"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		cfg := do.MustInvoke[*config.Config](i)
		gw := do.MustInvoke[*gateway.Gateway](i)
		return New(gw, cfg.MaxConnections), nil
	})
}
