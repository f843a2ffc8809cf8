package urls

// Repository is the project home, shown in the monitor header
const Repository = "github.com/gateworks/periphmon"

// PropertyFormat documents the discovery line formats and key prefixes
const PropertyFormat = "https://github.com/gateworks/periphmon#device-discovery"

// Troubleshooting covers sysfs permissions and missing devices
const Troubleshooting = "https://github.com/gateworks/periphmon#troubleshooting"
