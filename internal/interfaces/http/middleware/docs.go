package middleware

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
)

// DocsAccess limits the API documentation routes to clients whose address
// (gin's ClientIP, so trusted proxies apply) falls inside allowed. Entries
// are single addresses or CIDR prefixes; an empty list admits everyone.
func DocsAccess(allowed []string) (gin.HandlerFunc, error) {
	prefixes, err := parseAllowList(allowed)
	if err != nil {
		return nil, err
	}
	if len(prefixes) == 0 {
		return passThrough, nil
	}
	return func(c *gin.Context) {
		addr, err := netip.ParseAddr(c.ClientIP())
		if err != nil || !slices.ContainsFunc(prefixes, func(p netip.Prefix) bool { return p.Contains(addr.Unmap()) }) {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeForbidden), dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c)))
			return
		}
		c.Next()
	}, nil
}

func parseAllowList(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid docs allow-list entry %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid docs allow-list entry %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
