package n2kd

import (
	"context"
	"fmt"

	"github.com/grandcat/zeroconf"
)

// AdvertiseMDNS registers an mDNS/DNS-SD service announcement for the
// JSON-stream port, so local NMEA 2000 viewers can discover this n2kd
// instance without a configured hostname (optional enrichment, spec §9's
// design note on discovery; never required for core server behaviour).
func AdvertiseMDNS(ctx context.Context, instance string, jsonStreamPort int) (func(), error) {
	server, err := zeroconf.Register(
		instance,
		"_n2kd._tcp",
		"local.",
		jsonStreamPort,
		[]string{"path=/json-stream"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("n2kd: registering mDNS service: %w", err)
	}
	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()
	return server.Shutdown, nil
}
