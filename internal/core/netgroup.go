package core

import "strings"

// Network bucket constants. The derivation is a coarse heuristic for
// "same LAN", not a security boundary.
const (
	NetworkLocal   = "local-development"
	NetworkHotspot = "mobile-hotspot"
)

// NetworkID derives a network-inferred group id from an origin address.
// Loopback maps to a single fixed bucket, IPv4 groups by its first two
// octets, IPv6 by its first four segments.
func NetworkID(addr string) string {
	ip := strings.TrimPrefix(addr, "::ffff:")

	switch ip {
	case "127.0.0.1", "::1", "localhost":
		return NetworkLocal
	}

	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 && parts[0] == "192" && parts[1] == "168" &&
			(parts[2] == "42" || parts[2] == "43") {
			return NetworkHotspot
		}
		if len(parts) >= 2 {
			return parts[0] + "." + parts[1]
		}
	}

	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) > 4 {
			parts = parts[:4]
		}
		return strings.Join(parts, ":")
	}

	return "unknown-" + ip
}

// AddrSuffix returns only the last octet/segment of an address.
// This is the only part of a peer's address ever exposed to the group.
func AddrSuffix(addr string) string {
	ip := strings.TrimPrefix(addr, "::ffff:")
	if i := strings.LastIndex(ip, "."); i >= 0 {
		return ip[i+1:]
	}
	if i := strings.LastIndex(ip, ":"); i >= 0 {
		return ip[i+1:]
	}
	return ip
}
