package bootstrap

import (
	"log/slog"

	"github.com/openhrms/fieldlink/config"
	"github.com/openhrms/fieldlink/internal/adapters/frappe"
	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	"github.com/openhrms/fieldlink/internal/service"
)

// Services bundles the data services built over one session.
type Services struct {
	Session   *service.SessionService
	Resources *service.ResourceService
	Villages  *service.VillageSearcher
	Checkins  *service.CheckinService
}

// BuildServices wires the resource services to the session's token supply
// and clears cached data whenever the session settles unauthenticated.
func BuildServices(cfg config.AppConfig, logger *slog.Logger, client *frappe.Client, sessions *service.SessionService) *Services {
	token := service.TokenFunc(sessions.AccessToken)

	resources := service.NewResourceService(service.ResourceServiceOptions{
		Client:  client,
		Token:   token,
		Company: cfg.API.Company,
	})
	villages := service.NewVillageSearcher(service.VillageSearcherOptions{
		Client: client,
		Token:  token,
		Config: cfg.Fetch,
		Logger: logger,
	})
	checkins := service.NewCheckinService(service.CheckinServiceOptions{
		Client: client,
		Token:  token,
	})

	sessions.Subscribe(func(state domainsession.State) {
		if !state.Authenticated && !state.Loading {
			resources.ClearCache()
		}
	})

	return &Services{
		Session:   sessions,
		Resources: resources,
		Villages:  villages,
		Checkins:  checkins,
	}
}
