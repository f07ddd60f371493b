package router

import (
	"net"

	"github.com/labstack/echo/v4"
)

// ClientIP returns the extractor that decides c.RealIP for the API. With
// no trusted proxies the socket peer is the client and forwarding headers
// are ignored. Otherwise X-Forwarded-For is walked from the right and the
// first hop outside the trusted ranges wins.
func ClientIP(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
