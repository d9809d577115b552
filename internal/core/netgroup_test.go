package core

import "testing"

func TestNetworkID(t *testing.T) {
	cases := []struct {
		addr string
		want string
	}{
		{"127.0.0.1", NetworkLocal},
		{"::1", NetworkLocal},
		{"localhost", NetworkLocal},
		{"::ffff:127.0.0.1", NetworkLocal},
		{"192.168.42.17", NetworkHotspot},
		{"192.168.43.5", NetworkHotspot},
		{"192.168.1.10", "192.168"},
		{"10.0.5.9", "10.0"},
		{"::ffff:10.20.30.40", "10.20"},
		{"2001:db8:a:b:c:d:e:f", "2001:db8:a:b"},
		{"fe80::1", "fe80::1"},
		{"somehost", "unknown-somehost"},
	}
	for _, c := range cases {
		if got := NetworkID(c.addr); got != c.want {
			t.Errorf("NetworkID(%q) = %q, want %q", c.addr, got, c.want)
		}
	}
}

// TestAddrSuffix verifies only the trailing fragment of an address is
// ever exposed to peers.
func TestAddrSuffix(t *testing.T) {
	cases := []struct {
		addr string
		want string
	}{
		{"192.168.1.10", "10"},
		{"::ffff:10.0.0.7", "7"},
		{"2001:db8::5", "5"},
		{"somehost", "somehost"},
	}
	for _, c := range cases {
		if got := AddrSuffix(c.addr); got != c.want {
			t.Errorf("AddrSuffix(%q) = %q, want %q", c.addr, got, c.want)
		}
	}
}
