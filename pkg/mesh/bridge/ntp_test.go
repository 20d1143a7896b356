package bridge

import "testing"

func TestNTPDistributor_RejectsSourceWithoutAuthority(t *testing.T) {
	d := NewNTPDistributor(1)
	_, adopt := d.Accept(false, NTPMessage{NTPTime: 1_000_000}, 0)
	if adopt {
		t.Fatalf("expected a non-authoritative bridge's NTP sync to be rejected")
	}
}

func TestNTPDistributor_AcceptsAuthoritativeSourceAndComputesOffset(t *testing.T) {
	d := NewNTPDistributor(1)
	offset, adopt := d.Accept(true, NTPMessage{NTPTime: 2_000}, 500_000)
	if !adopt {
		t.Fatalf("expected an authoritative bridge's NTP sync to be accepted")
	}
	wantOffset := int64(2_000*1000) - 500_000
	if offset != wantOffset {
		t.Fatalf("expected offset %d, got %d", wantOffset, offset)
	}
}
