package cli

import (
	"dpulogin/config"
	"dpulogin/dns"
	"dpulogin/logging"
	"dpulogin/portal"
	"dpulogin/probe"
)

// stack is the prober and login client built from one configuration.
type stack struct {
	prober *probe.Prober
	client *portal.Client
}

func buildStack(cfg *config.Config) (*stack, error) {
	resolver := dns.NewResolver(cfg.Probe.DNSServer, cfg.Probe.DNSTimeout)

	prober, err := probe.New(cfg.ProbeSettings(),
		probe.NewICMPPinger(cfg.Probe.PingTimeout, probe.WithPingLogger(logging.Component("ping"))),
		resolver,
		probe.WithLogger(logging.Component("probe")))
	if err != nil {
		return nil, err
	}

	// A pinned DNS server applies to the gateway name too.
	client, err := portal.NewClient(cfg.PortalSettings(resolver.NetResolver()),
		portal.WithLogger(logging.Component("portal")))
	if err != nil {
		return nil, err
	}

	return &stack{prober: prober, client: client}, nil
}
