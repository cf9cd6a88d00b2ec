package targets

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ParsePorts splits a comma-separated port list.
func ParsePorts(s string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		ports = append(ports, p)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports given")
	}
	return ports, nil
}

// ExpandCIDR expands a CIDR range and a port list into URLs. Port 443 maps
// to https, everything else to http. Network and broadcast addresses are
// skipped for IPv4 prefixes shorter than /31.
func ExpandCIDR(cidr string, ports []int) ([]string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	prefix = prefix.Masked()

	skipEdges := prefix.Addr().Is4() && prefix.Bits() < 31
	first := prefix.Addr()
	var urls []string
	for addr := first; prefix.Contains(addr); addr = addr.Next() {
		if skipEdges && (addr == first || !prefix.Contains(addr.Next())) {
			continue
		}
		for _, port := range ports {
			scheme := "http"
			if port == 443 {
				scheme = "https"
			}
			urls = append(urls, fmt.Sprintf("%s://%s:%d", scheme, addr, port))
		}
	}
	return urls, nil
}
