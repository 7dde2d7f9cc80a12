package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DomainInfo describes one dashboard tab for the presentation layer.
type DomainInfo struct {
	Domain string `json:"domain"`
	Label  string `json:"label"`
}

// Service drives one snapshot request end to end: resolve the filter
// context, run the catalog's batch, reduce every result, compose.
type Service struct {
	resolver *Resolver
	wh       Warehouse
	log      zerolog.Logger
}

func NewService(resolver *Resolver, wh Warehouse, log zerolog.Logger) *Service {
	return &Service{resolver: resolver, wh: wh, log: log}
}

// Domains lists the available dashboard domains in presentation order.
func (s *Service) Domains() []DomainInfo {
	cats := Catalogs()
	infos := make([]DomainInfo, 0, len(cats))
	for _, c := range cats {
		infos = append(infos, DomainInfo{Domain: c.Domain, Label: c.Label})
	}
	return infos
}

// Snapshot builds the dashboard snapshot for one domain and raw filter
// inputs. Filter resolution happens before any warehouse access; an
// incomplete filter never reaches the pool.
func (s *Service) Snapshot(ctx context.Context, domain, facilityToken, period, year, insuranceLabel string) (*DashboardSnapshot, error) {
	cat, ok := CatalogFor(domain)
	if !ok {
		return nil, ErrUnknownDomain
	}

	if year == "" && cat.DefaultCurrentYear {
		year = time.Now().Format("2006")
	}

	fc, err := s.resolver.Resolve(facilityToken, period, year, insuranceLabel)
	if err != nil {
		return nil, err
	}

	outcomes, err := s.wh.RunBatch(ctx, cat, fc)
	if err != nil {
		return nil, err
	}

	for name, o := range outcomes {
		if o.Err != nil {
			s.log.Warn().
				Str("domain", cat.Domain).
				Str("template", name).
				Err(o.Err).
				Msg("query degraded to empty table")
		}
	}

	return Compose(cat, fc, outcomes), nil
}
