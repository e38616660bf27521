package provider

import (
	"context"
	"testing"
)

func TestAccountInfo_Empty(t *testing.T) {
	a := newTestAdapter(&fakeRunner{}, nil, SettleConfig{})

	info, err := a.AccountInfo(context.Background(), testProvider)
	if err != nil {
		t.Fatalf("AccountInfo() error = %v", err)
	}
	want := "Account details not available from Acme VPN's Linux CLI."
	if len(info) != 1 || info[0] != want {
		t.Errorf("AccountInfo() = %q, want [%q]", info, want)
	}
}

func TestAccountInfo_Sanitized(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]string{"account": {"Email: jane-doe@example.com", "Plan: 1/yr"}}}
	a := newTestAdapter(r, nil, SettleConfig{})

	info, err := a.AccountInfo(context.Background(), testProvider)
	if err != nil {
		t.Fatalf("AccountInfo() error = %v", err)
	}
	want := []string{"Email: janedoe@example.com", "Plan: 1yr"}
	if len(info) != len(want) {
		t.Fatalf("AccountInfo() = %q, want %q", info, want)
	}
	for i := range want {
		if info[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, info[i], want[i])
		}
	}
}
