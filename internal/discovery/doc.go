// Package discovery enumerates the peripherals a board exposes and finds other
// periphmon instances on the network.
//
// # Property Sources
//
// Devices are listed by a line-oriented property source. On Gateworks Android
// images this is the output of /system/bin/getprop, where the board support
// package publishes one property per peripheral:
//
//	[hw.led.user1]: [none]
//	[hw.gpio.dio0]: [0]
//	[hw.hwmon.temp]: [41250]
//	[hw.pwm.pwm2]: [1000]
//
// A Source returns those lines on demand. Three implementations exist:
//   - CommandSource: spawns a command and reads its stdout
//   - FileSource: reads a text file (useful for boards without getprop)
//   - StaticSource: fixed lines (simulation and tests)
//
// Sources are consumed by the catalog package, which turns the lines into
// device records.
//
// # Monitor Discovery
//
// A running "periphmon serve" instance advertises itself over mDNS using the
// "_periphmon._tcp" service type. Scanner browses for these advertisements:
//
//	monitors, err := discovery.ScanForMonitors(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range monitors {
//	    fmt.Printf("Found: %s at %s\n", m.Instance, m.FeedURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Monitors must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
