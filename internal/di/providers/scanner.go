package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookpeer/internal/config"
	"github.com/listenupapp/bookpeer/internal/logger"
	"github.com/listenupapp/bookpeer/internal/owner"
	"github.com/listenupapp/bookpeer/internal/scanner"
	"github.com/listenupapp/bookpeer/internal/scanner/audio"
)

// ProvideOwnerResolver provides the resolver for the local peer's identity.
func ProvideOwnerResolver(i do.Injector) (*owner.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return owner.NewResolver(log.Component("owner"), owner.Options{
		Host:    cfg.Owner.Host,
		Port:    cfg.Owner.Port,
		Timeout: cfg.Owner.ResolveTimeout,
	})
}

// ProvideProber provides the audio header prober.
func ProvideProber(i do.Injector) (audio.Prober, error) {
	log := do.MustInvoke[*logger.Logger](i)

	return audio.NewNativeProber(log.Component("probe")), nil
}

// ProvideFinder provides the catalog builder.
func ProvideFinder(i do.Injector) (*scanner.Finder, error) {
	log := do.MustInvoke[*logger.Logger](i)
	prober := do.MustInvoke[audio.Prober](i)
	resolver := do.MustInvoke[*owner.Resolver](i)

	return scanner.NewFinder(log.Component("finder"), prober, resolver), nil
}
