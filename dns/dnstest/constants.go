package dnstest

// DNS packet constants
const (
	// DNS header offsets
	headerIDOffset      = 0
	headerFlagsOffset   = 2
	headerQDCountOffset = 4
	headerANCountOffset = 6
	headerNSCountOffset = 8
	headerARCountOffset = 10
	headerSize          = 12

	// DNS flags
	flagQR = 0x8000 // Query Response flag
	flagAA = 0x0400 // Authoritative Answer
	flagRD = 0x0100 // Recursion Desired
	flagRA = 0x0080 // Recursion Available

	// Response codes
	rcodeNameError = 0x0003 // NXDOMAIN

	// DNS record types
	typeA    = 1
	typeAAAA = 28

	// DNS classes
	classIN = 1
)
