package resolve

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/emunet/faultbed/pkg/spec"
	"github.com/emunet/faultbed/pkg/topology"
)

func testTopology() topology.Topology {
	h1 := topology.Host{Name: "h1", PID: 101}
	h2 := topology.Host{Name: "h2", PID: 102}
	s1 := topology.Host{Name: "s1", PID: 201}

	return topology.NewStatic(
		[]topology.Host{h1, h2, s1},
		[]topology.Link{
			{
				A: topology.Endpoint{Node: h1, Iface: "h1-eth0"},
				B: topology.Endpoint{Node: s1, Iface: "s1-eth1"},
			},
			{
				A: topology.Endpoint{Node: h1, Iface: "h1-eth1"},
				B: topology.Endpoint{Node: s1, Iface: "s1-eth2"},
			},
			{
				A: topology.Endpoint{Node: s1, Iface: "s1-eth3"},
				B: topology.Endpoint{Node: h2, Iface: "h2-eth0"},
			},
		},
	)
}

func intPtr(v int) *int {
	return &v
}

func Test_Resolve(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		title    string
		ref      string
		expected spec.Target
	}{
		{
			title:    "bare host name",
			ref:      "h1",
			expected: spec.Target{PID: intPtr(101), Ref: "h1"},
		},
		{
			title:    "implicit link takes the first matching link",
			ref:      "h1->s1",
			expected: spec.Target{PID: intPtr(101), Iface: "h1-eth0", Ref: "h1->s1"},
		},
		{
			title:    "implicit link resolves the source side",
			ref:      "s1->h1",
			expected: spec.Target{PID: intPtr(201), Iface: "s1-eth1", Ref: "s1->h1"},
		},
		{
			title:    "explicit interface selects among parallel links",
			ref:      "h1->s1:h1-eth1",
			expected: spec.Target{PID: intPtr(101), Iface: "h1-eth1", Ref: "h1->s1:h1-eth1"},
		},
		{
			title:    "link order does not matter",
			ref:      "h2->s1",
			expected: spec.Target{PID: intPtr(102), Iface: "h2-eth0", Ref: "h2->s1"},
		},
		{
			title:    "unknown host stays unresolved",
			ref:      "h9",
			expected: spec.Target{Ref: "h9"},
		},
		{
			title:    "unconnected nodes stay unresolved",
			ref:      "h1->h2",
			expected: spec.Target{Ref: "h1->h2"},
		},
		{
			title:    "explicit interface must match exactly",
			ref:      "h1->s1:eth7",
			expected: spec.Target{Ref: "h1->s1:eth7"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			target := New(nil).Resolve(testTopology(), tc.ref)
			if diff := cmp.Diff(tc.expected, target); diff != "" {
				t.Errorf("unexpected target (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_InterfaceName(t *testing.T) {
	t.Parallel()

	resolver := New(nil)

	iface, ok := resolver.InterfaceName(testTopology(), "s1->h2")
	if !ok {
		t.Fatalf("expected the reference to resolve")
	}
	if iface != "s1-eth3" {
		t.Errorf("expected %q got %q", "s1-eth3", iface)
	}

	if _, ok := resolver.InterfaceName(testTopology(), "h1->h2"); ok {
		t.Errorf("expected the reference not to resolve")
	}
}

func Test_IsLinkRef(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		ref      string
		expected bool
	}{
		{"h1", false},
		{"h1->s1", true},
		{"h1->s1:eth0", true},
		{"h1->", false},
		{"->s1", false},
	}

	for _, tc := range testCases {
		if got := IsLinkRef(tc.ref); got != tc.expected {
			t.Errorf("IsLinkRef(%q) = %v, expected %v", tc.ref, got, tc.expected)
		}
	}
}
