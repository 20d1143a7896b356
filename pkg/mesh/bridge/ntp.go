package bridge

import (
	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// NTPMessage is the NTPTimeSync package body (type 614).
type NTPMessage struct {
	NTPTime    int64  `json:"ntpTime"`
	AccuracyMs uint32 `json:"accuracyMs"`
	SourceName string `json:"sourceName"`
}

// NTPDistributor applies §4.G.4: a node that accepts an NTP sync sets
// HasAuthority and integrates the offset. Adoption is unconditional as long
// as the originating bridge itself has authority.
type NTPDistributor struct {
	self types.NodeId
}

// NewNTPDistributor builds an NTPDistributor for node self.
func NewNTPDistributor(self types.NodeId) *NTPDistributor {
	return &NTPDistributor{self: self}
}

// Accept evaluates an inbound NTPMessage from a bridge whose current
// HasAuthority flag is bridgeHasAuthority. It returns the offset to
// integrate (ntpTimeMicros - nowMeshMicros) and whether to adopt it at all.
func (d *NTPDistributor) Accept(bridgeHasAuthority bool, msg NTPMessage, nowMeshMicros int64) (offsetMicros int64, adopt bool) {
	if !bridgeHasAuthority {
		return 0, false
	}
	ntpMicros := msg.NTPTime * 1000
	delta := ntpMicros - nowMeshMicros
	return delta, true
}
