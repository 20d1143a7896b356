package types

import "time"

// Platform bundles the environment inputs the core consumes from
// collaborators (§6). None of these are implemented in this module; a
// default, clock-only Platform is provided for hosts that don't need RSSI
// scanning or an RTC (e.g. servers, tests).
type Platform struct {
	// NowMillis returns a monotonic millisecond timestamp.
	NowMillis func() uint64

	// FreeMemory reports free heap bytes available to the process.
	FreeMemory func() uint32

	// RouterScan scans for ssid and returns its RSSI in dBm, or 0 if not
	// visible. Supplied by the radio driver collaborator.
	RouterScan func(ssid string) int8

	// StationConnect/StationDisconnect toggle station mode. Side-effectful,
	// supplied by the radio driver collaborator.
	StationConnect    func(ssid, password string, channel uint8) error
	StationDisconnect func() error

	// RTCGetUnixTime/RTCSetUnixTime read/write an optional real-time clock,
	// in seconds since epoch. May be nil if no RTC is present.
	RTCGetUnixTime func() (int64, bool)
	RTCSetUnixTime func(unixSeconds int64)
}

// DefaultPlatform returns a Platform backed only by the OS clock; RSSI
// scanning, station control and RTC access are stubs that report "not
// available" rather than touching hardware.
func DefaultPlatform() Platform {
	start := time.Now()
	return Platform{
		NowMillis: func() uint64 {
			return uint64(time.Since(start).Milliseconds())
		},
		FreeMemory: func() uint32 {
			return 0
		},
		RouterScan: func(string) int8 {
			return 0
		},
		StationConnect: func(string, string, uint8) error {
			return nil
		},
		StationDisconnect: func() error {
			return nil
		},
		RTCGetUnixTime: func() (int64, bool) {
			return 0, false
		},
		RTCSetUnixTime: func(int64) {},
	}
}
