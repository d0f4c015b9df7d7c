package synth

import "github.com/signalsfoundry/netintent/model"

// CustomerCommunityList is the community-list number matching customer routes.
const CustomerCommunityList = 1

// RouteMaps appends the community-list and the six relationship route-maps.
// Routes learned from customers are tagged on the way in; towards providers
// and peers only tagged (customer) routes are re-advertised, so nothing
// learned from one provider or peer leaks to another.
func (s *BGP) RouteMaps(b *Block) {
	p := s.Policy

	b.Add("! --- POLICIES ---")
	b.Addf("ip community-list %d permit %s", CustomerCommunityList, p.CustomerCommunity)

	b.Addf("route-map %s permit 10", model.RelationshipCustomer.RouteMapIn())
	b.Addf(" set local-preference %d", p.LocalPrefCustomer)
	b.Addf(" set community %s additive", p.CustomerCommunity)
	b.Add(" exit")
	b.Addf("route-map %s permit 10", model.RelationshipCustomer.RouteMapOut())
	b.Add(" exit")

	b.Addf("route-map %s permit 10", model.RelationshipProvider.RouteMapIn())
	b.Addf(" set local-preference %d", p.LocalPrefProvider)
	b.Add(" exit")
	b.Addf("route-map %s permit 10", model.RelationshipProvider.RouteMapOut())
	b.Addf(" match community %d", CustomerCommunityList)
	b.Add(" exit")

	b.Addf("route-map %s permit 10", model.RelationshipPeer.RouteMapIn())
	b.Addf(" set local-preference %d", p.LocalPrefPeer)
	b.Add(" exit")
	b.Addf("route-map %s permit 10", model.RelationshipPeer.RouteMapOut())
	b.Addf(" match community %d", CustomerCommunityList)
	b.Add(" exit")
}
